// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

// Publisher fans a delta out to the subscribers of a poll. It must not block.
type Publisher interface {
	Publish(pollID string, delta models.Delta) int
}

// Engine owns the authoritative tally of every poll it has touched.
//
// Each poll is an independent unit with its own lock; the engine-wide lock
// only guards the map of loaded polls. A vote holds its poll's lock across the
// ledger check, the store write and the in-memory increment, and publishes the
// resulting delta before releasing it, so deltas leave in commit order.
type Engine struct {
	store     store.Store
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	polls map[string]*pollState
	loads singleflight.Group
}

type pollState struct {
	mu     sync.Mutex
	poll   models.Poll
	ledger *Ledger
}

// NewEngine creates an engine over s. A nil publisher disables broadcasting.
func NewEngine(s store.Store, publisher Publisher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     s,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		polls:     make(map[string]*pollState),
	}
}

// CreatePoll validates and stores a new poll. Blank options are dropped
// before the option count is checked.
func (e *Engine) CreatePoll(ctx context.Context, question string, options []string) (models.Snapshot, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.Snapshot{}, fmt.Errorf("%w: question is required", models.ErrInvalidPoll)
	}
	if utf8.RuneCountInString(question) > models.MaxQuestionLength {
		return models.Snapshot{}, fmt.Errorf("%w: question must be at most %d characters",
			models.ErrInvalidPoll, models.MaxQuestionLength)
	}

	opts := make([]models.Option, 0, len(options))
	for _, label := range options {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if utf8.RuneCountInString(label) > models.MaxOptionLength {
			return models.Snapshot{}, fmt.Errorf("%w: options must be at most %d characters",
				models.ErrInvalidPoll, models.MaxOptionLength)
		}
		opts = append(opts, models.Option{Text: label})
	}
	if len(opts) < models.MinOptions || len(opts) > models.MaxOptions {
		return models.Snapshot{}, fmt.Errorf("%w: between %d and %d options required",
			models.ErrInvalidPoll, models.MinOptions, models.MaxOptions)
	}

	poll := models.Poll{
		ID:        uuid.NewString(),
		Question:  question,
		Options:   opts,
		CreatedAt: e.now().UTC(),
	}
	if err := e.store.CreatePoll(ctx, poll); err != nil {
		e.logger.Error("failed to store poll", "error", err)
		return models.Snapshot{}, fmt.Errorf("%w: %w", models.ErrTransientUnavailable, err)
	}

	st := &pollState{poll: poll, ledger: newLedger(nil)}
	st.poll.Options = append([]models.Option(nil), opts...)

	e.mu.Lock()
	e.polls[poll.ID] = st
	e.mu.Unlock()

	e.logger.Info("poll created", "poll_id", poll.ID, "options", len(opts))
	return NewSnapshot(poll), nil
}

// Vote records rec in the ledger and applies it to the tally as one step.
// ID and CreatedAt are assigned here. The returned snapshot already includes
// the vote.
//
// Errors: ErrMissingToken, ErrNotFound, ErrInvalidOption, ErrDuplicateVote
// and ErrTransientUnavailable. On any error neither the ledger nor the tally
// has changed.
func (e *Engine) Vote(ctx context.Context, rec models.VoteRecord) (models.Snapshot, error) {
	if !auth.ValidParticipantToken(rec.ParticipantToken) {
		return models.Snapshot{}, models.ErrMissingToken
	}

	st, err := e.state(ctx, rec.PollID)
	if err != nil {
		return models.Snapshot{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if rec.OptionIndex < 0 || rec.OptionIndex >= len(st.poll.Options) {
		return models.Snapshot{}, models.ErrInvalidOption
	}
	if st.ledger.Has(rec.ParticipantToken) {
		return models.Snapshot{}, models.ErrDuplicateVote
	}

	rec.ID = uuid.NewString()
	rec.CreatedAt = e.now().UTC()

	// Once the write starts the vote is no longer cancellable.
	err = e.store.RecordVote(context.WithoutCancel(ctx), rec)
	switch {
	case errors.Is(err, models.ErrDuplicateVote):
		// Another process sharing the store got there first.
		st.ledger.add(rec)
		e.refresh(ctx, st)
		return models.Snapshot{}, models.ErrDuplicateVote
	case err != nil:
		e.logger.Error("failed to record vote", "error", err, "poll_id", rec.PollID)
		return models.Snapshot{}, fmt.Errorf("%w: %w", models.ErrTransientUnavailable, err)
	}

	st.ledger.add(rec)
	st.poll.Options[rec.OptionIndex].Votes++
	snap := NewSnapshot(st.poll)

	subscribers := 0
	if e.publisher != nil {
		subscribers = e.publisher.Publish(rec.PollID, snap.Delta())
	}

	e.logger.Info("vote recorded",
		"poll_id", rec.PollID,
		"option_index", rec.OptionIndex,
		"total_votes", snap.TotalVotes,
		"subscribers", subscribers,
	)
	return snap, nil
}

// Snapshot returns a consistent copy of the poll's current tally.
func (e *Engine) Snapshot(ctx context.Context, pollID string) (models.Snapshot, error) {
	st, err := e.state(ctx, pollID)
	if err != nil {
		return models.Snapshot{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return NewSnapshot(st.poll), nil
}

// HasVoted reports whether token has a vote record for the poll.
func (e *Engine) HasVoted(ctx context.Context, pollID, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	st, err := e.state(ctx, pollID)
	if err != nil {
		return false, err
	}
	return st.ledger.Has(token), nil
}

// state returns the loaded poll, loading it from the store on first use.
// Concurrent first uses of one poll share a single load.
func (e *Engine) state(ctx context.Context, pollID string) (*pollState, error) {
	e.mu.Lock()
	st, ok := e.polls[pollID]
	e.mu.Unlock()
	if ok {
		return st, nil
	}

	v, err, _ := e.loads.Do(pollID, func() (any, error) {
		e.mu.Lock()
		st, ok := e.polls[pollID]
		e.mu.Unlock()
		if ok {
			return st, nil
		}

		loadCtx := context.WithoutCancel(ctx)
		poll, err := e.store.GetPoll(loadCtx, pollID)
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		if err != nil {
			e.logger.Error("failed to load poll", "error", err, "poll_id", pollID)
			return nil, fmt.Errorf("%w: %w", models.ErrTransientUnavailable, err)
		}
		records, err := e.store.ListVoteRecords(loadCtx, pollID)
		if err != nil {
			e.logger.Error("failed to load vote records", "error", err, "poll_id", pollID)
			return nil, fmt.Errorf("%w: %w", models.ErrTransientUnavailable, err)
		}

		st = &pollState{poll: poll, ledger: newLedger(records)}
		e.mu.Lock()
		e.polls[pollID] = st
		e.mu.Unlock()

		e.logger.Debug("poll loaded", "poll_id", pollID, "vote_records", len(records))
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pollState), nil
}

// refresh reloads counts written by another process. Caller holds st.mu.
func (e *Engine) refresh(ctx context.Context, st *pollState) {
	poll, err := e.store.GetPoll(context.WithoutCancel(ctx), st.poll.ID)
	if err != nil {
		e.logger.Warn("failed to refresh poll", "error", err, "poll_id", st.poll.ID)
		return
	}
	if len(poll.Options) != len(st.poll.Options) {
		e.logger.Warn("refreshed poll has a different option count, keeping loaded counts",
			"poll_id", st.poll.ID, "loaded", len(st.poll.Options), "stored", len(poll.Options))
		return
	}
	st.poll.Options = poll.Options
}
