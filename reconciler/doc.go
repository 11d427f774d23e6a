// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package reconciler keeps a participant's view of a poll consistent while
their own vote and everyone else's broadcast deltas race each other.

A Viewer moves through four phases:

	Loading --FetchSucceeded--> Viewing
	Loading --FetchFailed-----> Failed --Retry--> Loading
	Viewing --Select----------> Voting     (optimistic +1 shown at once)
	Voting  --VoteAccepted----> Viewing    (server snapshot replaces the guess)
	Voting  --VoteRejected----> Viewing    (guess rolled back)

Deltas are throttled through a single coalescing slot: at most one is applied
per interval and later deltas replace earlier ones waiting in the slot. While
Loading or Voting the newest delta is held back and applied once the viewer is
Viewing again, so a broadcast never undoes an optimistic increment on screen.
A delta whose total is lower than the displayed total is stale and ignored.
*/
package reconciler
