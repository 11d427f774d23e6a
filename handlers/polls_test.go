// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/tally"
	"github.com/danielhkuo/livepoll/testutil"
)

func TestCreatePoll(t *testing.T) {
	stack := testutil.SetupStack(t)
	handler := NewPollHandler(stack.Engine, stack.Config)

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		expectedCode   string
		checkResponse  func(t *testing.T, resp *models.CreatePollResponse)
	}{
		{
			name: "valid poll creation",
			requestBody: models.CreatePollRequest{
				Question: "Favourite colour?",
				Options:  []string{"Red", "Blue"},
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *models.CreatePollResponse) {
				if !resp.Success {
					t.Error("Expected success")
				}
				if resp.PollID == "" || resp.Poll.PollID != resp.PollID {
					t.Errorf("Expected poll_id to match snapshot, got %q and %q", resp.PollID, resp.Poll.PollID)
				}
				if len(resp.Poll.Options) != 2 || resp.Poll.TotalVotes != 0 {
					t.Errorf("Unexpected snapshot %+v", resp.Poll)
				}

				// Persisted through the store
				poll, err := stack.Store.GetPoll(t.Context(), resp.PollID)
				if err != nil {
					t.Fatalf("Failed to load poll from store: %v", err)
				}
				if poll.Question != "Favourite colour?" {
					t.Errorf("Expected stored question, got %q", poll.Question)
				}
			},
		},
		{
			name: "blank options dropped",
			requestBody: models.CreatePollRequest{
				Question: "Lunch?",
				Options:  []string{"Pizza", "", "  ", "Tacos"},
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *models.CreatePollResponse) {
				if len(resp.Poll.Options) != 2 {
					t.Errorf("Expected 2 options, got %d", len(resp.Poll.Options))
				}
			},
		},
		{
			name:           "missing question",
			requestBody:    models.CreatePollRequest{Options: []string{"A", "B"}},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   models.CodeInvalidPoll,
		},
		{
			name:           "single option",
			requestBody:    models.CreatePollRequest{Question: "Q?", Options: []string{"A"}},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   models.CodeInvalidPoll,
		},
		{
			name:           "question too long",
			requestBody:    models.CreatePollRequest{Question: strings.Repeat("q", 201), Options: []string{"A", "B"}},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   models.CodeInvalidPoll,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body []byte
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				var err error
				body, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatalf("Failed to marshal request body: %v", err)
				}
			}

			req := httptest.NewRequest("POST", "/api/polls", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.CreatePoll(w, req)

			if tt.expectedCode != "" {
				testutil.AssertErrorCode(t, w, tt.expectedStatus, tt.expectedCode)
				return
			}
			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.checkResponse != nil && w.Code == http.StatusCreated {
				var resp models.CreatePollResponse
				testutil.AssertJSON(t, w, &resp)
				tt.checkResponse(t, &resp)
			}
		})
	}
}

func TestGetPoll(t *testing.T) {
	stack := testutil.SetupStack(t)
	handler := NewPollHandler(stack.Engine, stack.Config)
	poll := testutil.CreateTestPoll(t, stack.Engine, "Favourite colour?", "Red", "Blue")
	testutil.CastTestVote(t, stack.Engine, poll.PollID, "alice", 1)

	tests := []struct {
		name         string
		pollID       string
		token        string
		wantStatus   int
		wantHasVoted bool
	}{
		{"without token", poll.PollID, "", http.StatusOK, false},
		{"token that voted", poll.PollID, "alice", http.StatusOK, true},
		{"token that did not vote", poll.PollID, "bob", http.StatusOK, false},
		{"unknown poll", "does-not-exist", "", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.token != "" {
				headers[middleware.ParticipantTokenHeader] = tt.token
			}
			req := testutil.MakeRequest("GET", "/api/polls/"+tt.pollID, nil, headers)
			req.SetPathValue("id", tt.pollID)
			w := httptest.NewRecorder()

			handler.GetPoll(w, req)

			if tt.wantStatus != http.StatusOK {
				testutil.AssertErrorCode(t, w, tt.wantStatus, models.CodeNotFound)
				return
			}
			testutil.AssertStatus(t, w, http.StatusOK)

			var resp models.GetPollResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.HasVoted != tt.wantHasVoted {
				t.Errorf("Expected has_voted=%v, got %v", tt.wantHasVoted, resp.HasVoted)
			}
			if resp.Poll.TotalVotes != 1 || resp.Poll.Options[1].Votes != 1 {
				t.Errorf("Expected {Red:0, Blue:1}, got %+v", resp.Poll.Options)
			}
			if resp.Poll.Percentages[1] != 100 {
				t.Errorf("Expected Blue at 100%%, got %v", resp.Poll.Percentages[1])
			}
		})
	}
}

func TestVote(t *testing.T) {
	stack := testutil.SetupStack(t)
	handler := NewPollHandler(stack.Engine, stack.Config)
	poll := testutil.CreateTestPoll(t, stack.Engine, "Favourite colour?", "Red", "Blue")

	vote := func(pollID string, body any) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/api/polls/"+pollID+"/vote", body, nil)
		req.SetPathValue("id", pollID)
		req.RemoteAddr = "203.0.113.9:5555"
		w := httptest.NewRecorder()
		handler.Vote(w, req)
		return w
	}

	t.Run("accepted", func(t *testing.T) {
		w := vote(poll.PollID, models.VoteRequest{OptionIndex: 1, ParticipantToken: "alice"})
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.VoteResponse
		testutil.AssertJSON(t, w, &resp)
		if !resp.Success {
			t.Error("Expected success")
		}
		if resp.Poll.Options[0].Votes != 0 || resp.Poll.Options[1].Votes != 1 || resp.Poll.TotalVotes != 1 {
			t.Errorf("Expected {Red:0, Blue:1, total:1}, got %+v", resp.Poll)
		}

		records, err := stack.Store.ListVoteRecords(t.Context(), poll.PollID)
		if err != nil || len(records) != 1 {
			t.Fatalf("Expected 1 stored record, got %d (%v)", len(records), err)
		}
		if records[0].IPHash == nil || *records[0].IPHash == "203.0.113.9" {
			t.Error("Expected a hashed client IP to be stored")
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		w := vote(poll.PollID, models.VoteRequest{OptionIndex: 0, ParticipantToken: "alice"})
		testutil.AssertErrorCode(t, w, http.StatusConflict, models.CodeDuplicateVote)
	})

	t.Run("invalid option", func(t *testing.T) {
		w := vote(poll.PollID, models.VoteRequest{OptionIndex: 7, ParticipantToken: "bob"})
		testutil.AssertErrorCode(t, w, http.StatusBadRequest, models.CodeInvalidOption)
	})

	t.Run("missing token", func(t *testing.T) {
		w := vote(poll.PollID, models.VoteRequest{OptionIndex: 0})
		testutil.AssertErrorCode(t, w, http.StatusBadRequest, models.CodeMissingToken)
	})

	t.Run("unknown poll", func(t *testing.T) {
		w := vote("nope", models.VoteRequest{OptionIndex: 0, ParticipantToken: "bob"})
		testutil.AssertErrorCode(t, w, http.StatusNotFound, models.CodeNotFound)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/polls/"+poll.PollID+"/vote", strings.NewReader("{"))
		req.SetPathValue("id", poll.PollID)
		w := httptest.NewRecorder()
		handler.Vote(w, req)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})

	// Rejected attempts left the tally alone
	snap, _ := stack.Engine.Snapshot(t.Context(), poll.PollID)
	if snap.TotalVotes != 1 {
		t.Errorf("Expected total 1 after rejected votes, got %d", snap.TotalVotes)
	}
}

func TestVote_StoreUnavailable(t *testing.T) {
	s := store.NewMemoryStore()
	engine := tally.NewEngine(s, nil, nil)
	handler := NewPollHandler(engine, testutil.GetTestConfig())
	poll := testutil.CreateTestPoll(t, engine, "Q?", "A", "B")

	s.FailVotes(errors.New("connection refused"))

	req := testutil.MakeRequest("POST", "/api/polls/"+poll.PollID+"/vote",
		models.VoteRequest{OptionIndex: 0, ParticipantToken: "alice"}, nil)
	req.SetPathValue("id", poll.PollID)
	w := httptest.NewRecorder()
	handler.Vote(w, req)

	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Code != models.CodeTransientUnavailable {
		t.Errorf("Expected code %q, got %q", models.CodeTransientUnavailable, resp.Code)
	}
	if strings.Contains(resp.Message, "connection refused") {
		t.Error("Expected storage details to stay out of the response")
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{models.ErrNotFound, http.StatusNotFound, models.CodeNotFound},
		{models.ErrInvalidOption, http.StatusBadRequest, models.CodeInvalidOption},
		{models.ErrDuplicateVote, http.StatusConflict, models.CodeDuplicateVote},
		{models.ErrTransientUnavailable, http.StatusServiceUnavailable, models.CodeTransientUnavailable},
		{models.ErrInvalidPoll, http.StatusBadRequest, models.CodeInvalidPoll},
		{models.ErrMissingToken, http.StatusBadRequest, models.CodeMissingToken},
		{errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, tt.err)
			testutil.AssertErrorCode(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}
