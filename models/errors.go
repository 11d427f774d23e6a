// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "errors"

var (
	ErrNotFound             = errors.New("poll not found")
	ErrInvalidOption        = errors.New("option index out of range")
	ErrDuplicateVote        = errors.New("participant has already voted on this poll")
	ErrTransientUnavailable = errors.New("service temporarily unavailable")
	ErrInvalidPoll          = errors.New("invalid poll definition")
	ErrMissingToken         = errors.New("participant token required")
)

// Error codes carried in ErrorResponse.Code
const (
	CodeNotFound             = "not_found"
	CodeInvalidOption        = "invalid_option"
	CodeDuplicateVote        = "duplicate_vote"
	CodeTransientUnavailable = "transient_unavailable"
	CodeInvalidPoll          = "invalid_poll"
	CodeMissingToken         = "missing_token"
)

var codes = map[string]error{
	CodeNotFound:             ErrNotFound,
	CodeInvalidOption:        ErrInvalidOption,
	CodeDuplicateVote:        ErrDuplicateVote,
	CodeTransientUnavailable: ErrTransientUnavailable,
	CodeInvalidPoll:          ErrInvalidPoll,
	CodeMissingToken:         ErrMissingToken,
}

// ErrorCode returns the wire code for a domain error, or "" if err is not one.
func ErrorCode(err error) string {
	for code, sentinel := range codes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}

// ErrorForCode maps a wire code back to its sentinel.
func ErrorForCode(code string) (error, bool) {
	err, ok := codes[code]
	return err, ok
}

// IsTerminal reports whether retrying a vote can never change the outcome.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidOption) ||
		errors.Is(err, ErrDuplicateVote)
}
