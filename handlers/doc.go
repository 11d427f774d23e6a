// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the livepoll API.

# Handler Types

Each handler is a struct holding the tally engine and config:

  - PollHandler: poll creation, snapshots and voting
  - LiveHandler: the websocket push channel

Handlers are created via constructor functions:

	pollHandler := handlers.NewPollHandler(engine, cfg)
	liveHandler := handlers.NewLiveHandler(engine, hub, cfg)

# Polls

	POST /api/polls           → CreatePoll (201, poll_id and snapshot)
	GET  /api/polls/{id}      → GetPoll (snapshot and has_voted)
	POST /api/polls/{id}/vote → Vote (updated snapshot)

GetPoll reads the participant token from the X-Participant-Token header; Vote
takes it in the body. The client IP is stored only as a salted hash.

# Errors

Domain errors become JSON error bodies with a code:

	not_found             404
	invalid_option        400
	invalid_poll          400
	missing_token         400
	duplicate_vote        409
	transient_unavailable 503

# Push Channel

Clients send {"type":"joinPoll","poll_id":...} and receive a voteUpdate with
the current snapshot, then one voteUpdate per accepted vote. leavePoll or a
disconnect removes the connection from the room. A write that misses the
write timeout closes the connection.
*/
package handlers
