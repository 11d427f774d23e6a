// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package client is a Go client for the livepoll API.

	c, err := client.New(client.Options{APIURL: "http://localhost:3318"})
	session, err := c.Open(ctx, pollID, func(s reconciler.State) { render(s) })
	go session.Watch(ctx)
	err = session.Vote(ctx, 1)

A Session pairs the HTTP calls with a reconciler.Viewer: votes are shown at
once and corrected by the server's answer, and deltas from the push channel
are throttled and held back while a vote is in flight.

Errors returned by the server are mapped back to the models sentinels, so
callers can use errors.Is(err, models.ErrDuplicateVote) and friends.

The participant token and the per-poll voted flags live in a LocalState.
FileState keeps them in a JSON file between runs; MemoryState forgets them
when the process exits.
*/
package client
