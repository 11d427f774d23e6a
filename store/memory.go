// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/danielhkuo/livepoll/models"
)

type voteKey struct {
	pollID string
	token  string
}

// MemoryStore keeps everything in process memory. It backs the "memory"
// database type and the engine tests.
type MemoryStore struct {
	mu sync.RWMutex

	polls   map[string]models.Poll
	records map[voteKey]models.VoteRecord

	// failVotes makes RecordVote fail, to exercise unavailable storage.
	failVotes error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		polls:   make(map[string]models.Poll),
		records: make(map[voteKey]models.VoteRecord),
	}
}

// FailVotes makes every following RecordVote return err. Pass nil to recover.
func (s *MemoryStore) FailVotes(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failVotes = err
}

func (s *MemoryStore) CreatePoll(_ context.Context, poll models.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.polls[poll.ID]; exists {
		return fmt.Errorf("poll with ID %s already exists", poll.ID)
	}
	poll.Options = append([]models.Option(nil), poll.Options...)
	s.polls[poll.ID] = poll
	return nil
}

func (s *MemoryStore) GetPoll(_ context.Context, pollID string) (models.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[pollID]
	if !ok {
		return models.Poll{}, models.ErrNotFound
	}
	poll.Options = append([]models.Option(nil), poll.Options...)
	return poll, nil
}

func (s *MemoryStore) ListVoteRecords(_ context.Context, pollID string) ([]models.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.VoteRecord, 0)
	for key, rec := range s.records {
		if key.pollID == pollID {
			items = append(items, rec)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *MemoryStore) RecordVote(_ context.Context, rec models.VoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failVotes != nil {
		return s.failVotes
	}

	poll, ok := s.polls[rec.PollID]
	if !ok {
		return models.ErrNotFound
	}
	if rec.OptionIndex < 0 || rec.OptionIndex >= len(poll.Options) {
		return models.ErrInvalidOption
	}
	key := voteKey{pollID: rec.PollID, token: rec.ParticipantToken}
	if _, exists := s.records[key]; exists {
		return models.ErrDuplicateVote
	}

	s.records[key] = rec
	poll.Options[rec.OptionIndex].Votes++
	return nil
}
