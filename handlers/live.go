// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/tally"
)

// LiveHandler serves the push channel. Each websocket connection can join
// and leave any number of poll rooms.
type LiveHandler struct {
	engine *tally.Engine
	hub    *broadcast.Hub
	cfg    cliparse.Config
	server websocket.Server
}

func NewLiveHandler(engine *tally.Engine, hub *broadcast.Hub, cfg cliparse.Config) *LiveHandler {
	h := &LiveHandler{engine: engine, hub: hub, cfg: cfg}
	h.server = websocket.Server{
		// Origins are not restricted, matching the CORS policy.
		Handshake: func(config *websocket.Config, r *http.Request) error {
			config.Origin, _ = websocket.Origin(config, r)
			return nil
		},
		Handler: h.serve,
	}
	return h
}

// ServeHTTP handles GET /api/live
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.server.ServeHTTP(w, r)
}

func (h *LiveHandler) serve(ws *websocket.Conn) {
	conn := newWSSubscriber(ws, h.cfg.WriteTimeout)
	joined := make(map[string]struct{})

	slog.Debug("live connection opened", "subscriber", conn.ID(), "remote", ws.Request().RemoteAddr)
	defer func() {
		for pollID := range joined {
			h.hub.Leave(pollID, conn)
		}
		ws.Close()
		slog.Debug("live connection closed", "subscriber", conn.ID(), "rooms", len(joined))
	}()

	ctx := ws.Request().Context()
	for {
		var msg models.ClientMessage
		if err := websocket.JSON.Receive(ws, &msg); err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("live connection read failed", "subscriber", conn.ID(), "error", err)
			}
			return
		}

		switch msg.Type {
		case models.EventJoinPoll:
			if msg.PollID == "" {
				conn.sendError("", "poll_id is required")
				continue
			}
			added := h.hub.Join(msg.PollID, conn)

			// Snapshot after joining so no vote falls between the two.
			snap, err := h.engine.Snapshot(ctx, msg.PollID)
			if err != nil {
				if added {
					h.hub.Leave(msg.PollID, conn)
				}
				conn.sendError(msg.PollID, err.Error())
				continue
			}
			if added {
				joined[msg.PollID] = struct{}{}
			}
			h.hub.Send(msg.PollID, conn, snap.Delta())

		case models.EventLeavePoll:
			h.hub.Leave(msg.PollID, conn)
			delete(joined, msg.PollID)

		default:
			conn.sendError(msg.PollID, "unknown event type: "+msg.Type)
		}
	}
}

// wsSubscriber adapts a websocket connection to broadcast.Subscriber.
// Writes from room goroutines and the read loop are serialized.
type wsSubscriber struct {
	id      string
	ws      *websocket.Conn
	timeout time.Duration

	mu sync.Mutex
}

// defaultWriteTimeout bounds push writes when none is configured; an
// unbounded write would stall the room goroutine and Hub.Close.
const defaultWriteTimeout = 5 * time.Second

func newWSSubscriber(ws *websocket.Conn, timeout time.Duration) *wsSubscriber {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	id, err := auth.GenerateID(8)
	if err != nil {
		id = ws.Request().RemoteAddr
	}
	return &wsSubscriber{id: id, ws: ws, timeout: timeout}
}

func (s *wsSubscriber) ID() string { return s.id }

// Deliver pushes a vote update. A failed write closes the connection, which
// ends the read loop and leaves every room.
func (s *wsSubscriber) Deliver(d models.Delta) error {
	err := s.send(models.PushMessage{Type: models.EventVoteUpdate, PollID: d.PollID, Delta: &d})
	if err != nil {
		s.ws.Close()
	}
	return err
}

func (s *wsSubscriber) sendError(pollID, message string) {
	err := s.send(models.PushMessage{Type: models.EventError, PollID: pollID, Message: message})
	if err != nil {
		slog.Debug("failed to send error frame", "subscriber", s.id, "error", err)
	}
}

func (s *wsSubscriber) send(msg models.PushMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ws.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return err
	}
	return websocket.JSON.Send(s.ws, msg)
}
