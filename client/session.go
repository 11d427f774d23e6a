// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/net/websocket"

	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/reconciler"
)

// Session is one participant's live view of one poll.
type Session struct {
	client *Client
	pollID string
	viewer *reconciler.Viewer
}

// Open creates a session for pollID and performs the initial fetch. The
// viewer starts out marked as voted if the local state says so. A failed
// fetch still returns the session, in the failed phase, with the error.
func (c *Client) Open(ctx context.Context, pollID string, onChange func(reconciler.State)) (*Session, error) {
	s := &Session{
		client: c,
		pollID: pollID,
		viewer: reconciler.NewViewer(reconciler.Options{
			PollID:   pollID,
			Interval: c.throttle,
			Voted:    c.state.Voted(pollID),
			OnChange: onChange,
		}),
	}
	return s, s.Refresh(ctx)
}

func (s *Session) PollID() string { return s.pollID }

// State returns a copy of what the participant currently sees.
func (s *Session) State() reconciler.State { return s.viewer.State() }

// Refresh fetches the poll again.
func (s *Session) Refresh(ctx context.Context) error {
	s.viewer.Retry()

	snap, hasVoted, err := s.client.GetPoll(ctx, s.pollID)
	if err != nil {
		s.viewer.FetchFailed(err)
		return err
	}
	if hasVoted {
		s.markVoted()
	}
	s.viewer.FetchSucceeded(snap, hasVoted)
	return nil
}

// Vote shows the vote optimistically, sends it and reconciles the answer.
// The returned error is the rejection reason, if any.
func (s *Session) Vote(ctx context.Context, option int) error {
	if err := s.viewer.Select(option); err != nil {
		return err
	}

	snap, err := s.client.Vote(ctx, s.pollID, option)
	if err != nil {
		s.viewer.VoteRejected(err)
		if errors.Is(err, models.ErrDuplicateVote) {
			s.markVoted()
		}
		return err
	}

	s.viewer.VoteAccepted(snap)
	s.markVoted()
	return nil
}

// Watch joins the poll's room and feeds deltas to the viewer until ctx is
// done. Lost connections are retried after the reconnect delay; it gives up
// after the configured number of consecutive failures.
func (s *Session) Watch(ctx context.Context) error {
	failures := 0
	for {
		err := s.watchOnce(ctx, func() { failures = 0 })
		if ctx.Err() != nil {
			return ctx.Err()
		}

		failures++
		if failures > s.client.reconnectAttempts {
			return fmt.Errorf("push channel lost after %d attempts: %w", failures-1, err)
		}
		s.client.logger.Warn("push channel lost, reconnecting",
			"poll_id", s.pollID, "attempt", failures, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.client.reconnectDelay):
		}
	}
}

// Close stops applying deltas.
func (s *Session) Close() {
	s.viewer.Close()
}

func (s *Session) watchOnce(ctx context.Context, connected func()) error {
	cfg, err := websocket.NewConfig(s.client.socketURL+"/api/live", s.client.apiURL)
	if err != nil {
		return fmt.Errorf("invalid push channel URL: %w", err)
	}
	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	// Unblock Receive when ctx ends.
	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	join := models.ClientMessage{Type: models.EventJoinPoll, PollID: s.pollID}
	if err := websocket.JSON.Send(ws, join); err != nil {
		return err
	}

	first := true
	for {
		var msg models.PushMessage
		if err := websocket.JSON.Receive(ws, &msg); err != nil {
			return err
		}

		switch msg.Type {
		case models.EventVoteUpdate:
			if msg.Delta == nil {
				continue
			}
			// The join snapshot proves the room is live again.
			if first {
				connected()
				first = false
			}
			s.viewer.OnDelta(*msg.Delta)
		case models.EventError:
			if msg.PollID == s.pollID {
				return fmt.Errorf("push channel: %s", msg.Message)
			}
			s.client.logger.Debug("push channel error", "poll_id", msg.PollID, "message", msg.Message)
		}
	}
}

func (s *Session) markVoted() {
	if err := s.client.state.MarkVoted(s.pollID); err != nil {
		s.client.logger.Warn("failed to persist voted flag", "poll_id", s.pollID, "error", err)
	}
}
