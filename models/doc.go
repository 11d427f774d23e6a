// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, domain, and push channel types.

# Request Types

  - CreatePollRequest: question, options
  - VoteRequest: option_index, participant_token

# Response Types

  - CreatePollResponse: success, poll_id, poll
  - GetPollResponse: success, poll, has_voted
  - VoteResponse: success, poll
  - ErrorResponse: error, message, code

# Domain Types

  - Poll: question and ordered options; total votes is derived
  - Option: label and vote count
  - VoteRecord: one per (poll, participant token)
  - Snapshot: point-in-time tally with derived percentages
  - Delta: full-snapshot broadcast to room members

# Push Channel

Frames are JSON objects with a type field:

	{"type":"joinPoll","poll_id":"..."}
	{"type":"leavePoll","poll_id":"..."}
	{"type":"voteUpdate","poll_id":"...","delta":{...}}
	{"type":"error","poll_id":"...","message":"..."}

# Errors

Sentinel errors (ErrNotFound, ErrInvalidOption, ErrDuplicateVote,
ErrTransientUnavailable, ErrInvalidPoll, ErrMissingToken) are shared by the
server and the client. ErrorCode and ErrorForCode convert between a sentinel and
the code field of ErrorResponse.
*/
package models
