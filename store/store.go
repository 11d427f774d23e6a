// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"

	"github.com/danielhkuo/livepoll/models"
)

// Store is the durable side of the poll engine. The engine keeps the
// authoritative working copy in memory and writes every accepted vote through.
type Store interface {
	CreatePoll(ctx context.Context, poll models.Poll) error

	// GetPoll returns models.ErrNotFound for unknown ids.
	GetPoll(ctx context.Context, pollID string) (models.Poll, error)

	ListVoteRecords(ctx context.Context, pollID string) ([]models.VoteRecord, error)

	// RecordVote stores the record and increments its option in one
	// transaction. It returns models.ErrDuplicateVote if the participant
	// already has a record for the poll, and changes nothing in that case.
	RecordVote(ctx context.Context, record models.VoteRecord) error
}
