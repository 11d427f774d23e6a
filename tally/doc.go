// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tally holds the authoritative vote counts and the ledger of who has
voted.

The Engine loads a poll from the store the first time it is used and keeps it
in memory afterwards. Every vote for a poll runs under that poll's lock:

  - the option index is checked against the poll
  - the ledger is checked for the participant token
  - the vote is written through to the store
  - the ledger entry and the option increment are applied together
  - the resulting delta is handed to the Publisher

If the store write fails nothing in memory changes and the caller gets
models.ErrTransientUnavailable. Votes on different polls never contend.

Percentages are derived from counts on every snapshot, rounded to one decimal,
and are all zero for a poll with no votes.
*/
package tally
