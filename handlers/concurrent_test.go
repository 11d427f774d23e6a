// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/testutil"
)

func postVote(handler *PollHandler, pollID, token string, option int) int {
	req := testutil.MakeRequest("POST", "/api/polls/"+pollID+"/vote",
		models.VoteRequest{OptionIndex: option, ParticipantToken: token}, nil)
	req.SetPathValue("id", pollID)
	w := httptest.NewRecorder()
	handler.Vote(w, req)
	return w.Code
}

// TestConcurrentVotesSameToken verifies that simultaneous votes carrying one
// participant token produce exactly one accepted vote
func TestConcurrentVotesSameToken(t *testing.T) {
	stack := testutil.SetupStack(t)
	handler := NewPollHandler(stack.Engine, stack.Config)
	poll := testutil.CreateTestPoll(t, stack.Engine, "Favourite colour?", "Red", "Blue")

	const attempts = 20
	var accepted, duplicates atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch code := postVote(handler, poll.PollID, "same-token", i%2); code {
			case http.StatusOK:
				accepted.Add(1)
			case http.StatusConflict:
				duplicates.Add(1)
			default:
				t.Errorf("unexpected status %d", code)
			}
		}(i)
	}
	wg.Wait()

	if accepted.Load() != 1 {
		t.Errorf("Expected exactly 1 accepted vote, got %d", accepted.Load())
	}
	if duplicates.Load() != attempts-1 {
		t.Errorf("Expected %d duplicates, got %d", attempts-1, duplicates.Load())
	}

	// Exactly one row made it to the database
	var count int
	err := stack.DB.QueryRow("SELECT COUNT(*) FROM vote_record WHERE poll_id = $1", poll.PollID).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count vote records: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 vote record in database, got %d", count)
	}
}

// TestConcurrentVotesDistinctTokens verifies that concurrent voters are all
// counted and the tally matches the ledger
func TestConcurrentVotesDistinctTokens(t *testing.T) {
	stack := testutil.SetupStack(t)
	handler := NewPollHandler(stack.Engine, stack.Config)
	poll := testutil.CreateTestPoll(t, stack.Engine, "Favourite colour?", "Red", "Blue")

	// One vote for Blue, then five concurrent votes for Red
	if code := postVote(handler, poll.PollID, "blue-voter", 1); code != http.StatusOK {
		t.Fatalf("Expected first vote to succeed, got %d", code)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if code := postVote(handler, poll.PollID, fmt.Sprintf("red-voter-%d", i), 0); code != http.StatusOK {
				t.Errorf("voter %d: unexpected status %d", i, code)
			}
		}(i)
	}
	wg.Wait()

	snap, err := stack.Engine.Snapshot(t.Context(), poll.PollID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Options[0].Votes != 5 || snap.Options[1].Votes != 1 || snap.TotalVotes != 6 {
		t.Errorf("Expected {Red:5, Blue:1, total:6}, got %+v total %d", snap.Options, snap.TotalVotes)
	}
	if snap.Percentages[0] != 83.3 || snap.Percentages[1] != 16.7 {
		t.Errorf("Expected percentages [83.3 16.7], got %v", snap.Percentages)
	}

	// The stored counts agree with the in-memory tally
	stored, err := stack.Store.GetPoll(t.Context(), poll.PollID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.TotalVotes() != 6 {
		t.Errorf("Expected 6 stored votes, got %d", stored.TotalVotes())
	}
}

// TestConcurrentPollsIndependent verifies that votes on different polls
// don't interfere with each other
func TestConcurrentPollsIndependent(t *testing.T) {
	stack := testutil.SetupStack(t)
	handler := NewPollHandler(stack.Engine, stack.Config)

	const numPolls = 4
	const votersPerPoll = 10
	polls := make([]models.Snapshot, numPolls)
	for i := range polls {
		polls[i] = testutil.CreateTestPoll(t, stack.Engine, fmt.Sprintf("Poll %d?", i), "Yes", "No")
	}

	var wg sync.WaitGroup
	for p := 0; p < numPolls; p++ {
		for v := 0; v < votersPerPoll; v++ {
			wg.Add(1)
			go func(p, v int) {
				defer wg.Done()
				// The same token may vote once on each poll
				if code := postVote(handler, polls[p].PollID, fmt.Sprintf("voter-%d", v), v%2); code != http.StatusOK {
					t.Errorf("poll %d voter %d: unexpected status %d", p, v, code)
				}
			}(p, v)
		}
	}
	wg.Wait()

	for i, poll := range polls {
		snap, _ := stack.Engine.Snapshot(t.Context(), poll.PollID)
		if snap.TotalVotes != votersPerPoll {
			t.Errorf("poll %d: expected %d votes, got %d", i, votersPerPoll, snap.TotalVotes)
		}
	}
}
