// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/db"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/tally"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema.
// It is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(cliparse.DatabaseSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  ":memory:",
		DatabaseType: cliparse.DatabaseSQLite,
		IPHashSalt:   "test-ip-salt",
		QueueSize:    16,
		WriteTimeout: time.Second,
	}
}

// Stack is a fully wired engine and hub over a test database.
type Stack struct {
	DB     *sql.DB
	Store  *store.SQLStore
	Hub    *broadcast.Hub
	Engine *tally.Engine
	Config cliparse.Config
}

// SetupStack wires a store, hub and engine the way main does.
func SetupStack(t *testing.T) *Stack {
	t.Helper()

	cfg := GetTestConfig()
	conn := SetupTestDB(t)
	s := store.NewSQLStore(conn)
	hub := broadcast.NewHub(cfg.QueueSize, nil)
	t.Cleanup(hub.Close)

	return &Stack{
		DB:     conn,
		Store:  s,
		Hub:    hub,
		Engine: tally.NewEngine(s, hub, nil),
		Config: cfg,
	}
}

// CreateTestPoll creates a poll through the engine and returns its snapshot
func CreateTestPoll(t *testing.T, engine *tally.Engine, question string, options ...string) models.Snapshot {
	t.Helper()

	snap, err := engine.CreatePoll(context.Background(), question, options)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}
	return snap
}

// CastTestVote records a vote and returns the resulting snapshot
func CastTestVote(t *testing.T, engine *tally.Engine, pollID, token string, option int) models.Snapshot {
	t.Helper()

	snap, err := engine.Vote(context.Background(), models.VoteRecord{
		PollID:           pollID,
		ParticipantToken: token,
		OptionIndex:      option,
	})
	if err != nil {
		t.Fatalf("Failed to cast test vote: %v", err)
	}
	return snap
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body any, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// AssertErrorCode decodes an error response and checks its code
func AssertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	AssertStatus(t, w, status)
	var resp models.ErrorResponse
	AssertJSON(t, w, &resp)
	if resp.Code != code {
		t.Errorf("Expected error code %q, got %q (message %q)", code, resp.Code, resp.Message)
	}
}
