// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/db"
	"github.com/danielhkuo/livepoll/models"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()

	conn, err := db.Open(cliparse.DatabaseSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return NewSQLStore(conn)
}

// each runs a test against every Store implementation
func each(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func testPoll(id string) models.Poll {
	return models.Poll{
		ID:       id,
		Question: "Favourite colour?",
		Options: []models.Option{
			{Text: "Red"},
			{Text: "Blue"},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestCreateAndGetPoll(t *testing.T) {
	each(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.CreatePoll(ctx, testPoll("p1")); err != nil {
			t.Fatalf("CreatePoll() error = %v", err)
		}

		got, err := s.GetPoll(ctx, "p1")
		if err != nil {
			t.Fatalf("GetPoll() error = %v", err)
		}
		if got.Question != "Favourite colour?" {
			t.Errorf("Expected question to round-trip, got %q", got.Question)
		}
		if len(got.Options) != 2 || got.Options[0].Text != "Red" || got.Options[1].Text != "Blue" {
			t.Errorf("Expected options in creation order, got %+v", got.Options)
		}
		if got.TotalVotes() != 0 {
			t.Errorf("Expected 0 votes, got %d", got.TotalVotes())
		}

		if _, err := s.GetPoll(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestRecordVote(t *testing.T) {
	each(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.CreatePoll(ctx, testPoll("p1")); err != nil {
			t.Fatal(err)
		}

		hash := "abcd"
		rec := models.VoteRecord{
			ID: "v1", PollID: "p1", ParticipantToken: "tok", OptionIndex: 1,
			IPHash: &hash, CreatedAt: time.Now().UTC(),
		}
		if err := s.RecordVote(ctx, rec); err != nil {
			t.Fatalf("RecordVote() error = %v", err)
		}

		// Same participant, different option
		rec.ID = "v2"
		rec.OptionIndex = 0
		if err := s.RecordVote(ctx, rec); !errors.Is(err, models.ErrDuplicateVote) {
			t.Errorf("Expected ErrDuplicateVote, got %v", err)
		}

		poll, err := s.GetPoll(ctx, "p1")
		if err != nil {
			t.Fatal(err)
		}
		if poll.Options[0].Votes != 0 || poll.Options[1].Votes != 1 {
			t.Errorf("Expected {Red:0, Blue:1}, got %+v", poll.Options)
		}

		records, err := s.ListVoteRecords(ctx, "p1")
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 1 {
			t.Fatalf("Expected 1 vote record, got %d", len(records))
		}
		if records[0].ParticipantToken != "tok" || records[0].OptionIndex != 1 {
			t.Errorf("Unexpected record %+v", records[0])
		}
		if records[0].IPHash == nil || *records[0].IPHash != "abcd" {
			t.Error("Expected ip hash to round-trip")
		}
	})
}

func TestRecordVote_InvalidOption(t *testing.T) {
	each(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.CreatePoll(ctx, testPoll("p1")); err != nil {
			t.Fatal(err)
		}

		rec := models.VoteRecord{ID: "v1", PollID: "p1", ParticipantToken: "tok", OptionIndex: 7, CreatedAt: time.Now()}
		if err := s.RecordVote(ctx, rec); !errors.Is(err, models.ErrInvalidOption) {
			t.Fatalf("Expected ErrInvalidOption, got %v", err)
		}

		// Nothing was written, so the participant may still vote
		records, _ := s.ListVoteRecords(ctx, "p1")
		if len(records) != 0 {
			t.Errorf("Expected no vote records, got %d", len(records))
		}
		rec.OptionIndex = 0
		if err := s.RecordVote(ctx, rec); err != nil {
			t.Errorf("Expected vote after rejected attempt to succeed, got %v", err)
		}
	})
}

func TestRecordVote_ConcurrentSameToken(t *testing.T) {
	each(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.CreatePoll(ctx, testPoll("p1")); err != nil {
			t.Fatal(err)
		}

		const attempts = 10
		var accepted, duplicates atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rec := models.VoteRecord{
					ID:               "v" + string(rune('a'+i)),
					PollID:           "p1",
					ParticipantToken: "same",
					OptionIndex:      i % 2,
					CreatedAt:        time.Now(),
				}
				switch err := s.RecordVote(ctx, rec); {
				case err == nil:
					accepted.Add(1)
				case errors.Is(err, models.ErrDuplicateVote):
					duplicates.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		if accepted.Load() != 1 || duplicates.Load() != attempts-1 {
			t.Errorf("Expected 1 accepted and %d duplicates, got %d and %d",
				attempts-1, accepted.Load(), duplicates.Load())
		}

		poll, _ := s.GetPoll(ctx, "p1")
		if poll.TotalVotes() != 1 {
			t.Errorf("Expected total 1, got %d", poll.TotalVotes())
		}
	})
}

func TestMemoryStore_FailVotes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.CreatePoll(ctx, testPoll("p1")); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("disk on fire")
	s.FailVotes(boom)
	rec := models.VoteRecord{ID: "v1", PollID: "p1", ParticipantToken: "tok", CreatedAt: time.Now()}
	if err := s.RecordVote(ctx, rec); !errors.Is(err, boom) {
		t.Fatalf("Expected injected error, got %v", err)
	}

	s.FailVotes(nil)
	if err := s.RecordVote(ctx, rec); err != nil {
		t.Fatalf("Expected recovery, got %v", err)
	}
}
