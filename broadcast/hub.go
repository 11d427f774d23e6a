// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/danielhkuo/livepoll/models"
)

// DefaultQueueSize is the number of undelivered deltas kept per subscriber.
const DefaultQueueSize = 16

// Subscriber receives deltas for the rooms it has joined. Implementations
// must be comparable (pointer types are) since they key room membership.
// Deliver is only ever called from one goroutine per room membership.
type Subscriber interface {
	ID() string
	Deliver(delta models.Delta) error
}

// Hub maps poll IDs to rooms of subscribers.
//
// Lock order is hub.mu, then room.mu. Publishing takes room.pubMu first and
// never holds hub.mu while enqueueing.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	closed bool

	queueSize int
	logger    *slog.Logger
	wg        sync.WaitGroup
}

type room struct {
	pollID string

	pubMu sync.Mutex // serializes publishes to this room

	mu      sync.RWMutex
	members map[Subscriber]*member
}

// NewHub creates a hub. A queueSize below 1 uses DefaultQueueSize.
func NewHub(queueSize int, logger *slog.Logger) *Hub {
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:     make(map[string]*room),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Join adds sub to the poll's room, creating the room if needed. It reports
// whether sub was newly added; joining twice is a no-op.
func (h *Hub) Join(pollID string, sub Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	r, ok := h.rooms[pollID]
	if !ok {
		r = &room{pollID: pollID, members: make(map[Subscriber]*member)}
		h.rooms[pollID] = r
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.members[sub]; exists {
		return false
	}

	m := newMember(sub, h.queueSize)
	r.members[sub] = m
	h.wg.Add(1)
	go h.run(pollID, m)

	h.logger.Debug("subscriber joined", "poll_id", pollID, "subscriber", sub.ID(), "members", len(r.members))
	return true
}

// Leave removes sub from the poll's room and destroys the room once empty.
// Leaving a room that was never joined is a no-op.
func (h *Hub) Leave(pollID string, sub Subscriber) bool {
	return h.remove(pollID, sub, nil)
}

// remove drops sub from the room. When only is set the removal happens only
// if the room still holds that exact membership.
func (h *Hub) remove(pollID string, sub Subscriber, only *member) bool {
	h.mu.Lock()
	r, ok := h.rooms[pollID]
	if !ok {
		h.mu.Unlock()
		return false
	}

	r.mu.Lock()
	m, ok := r.members[sub]
	if !ok || (only != nil && m != only) {
		r.mu.Unlock()
		h.mu.Unlock()
		return false
	}
	delete(r.members, sub)
	empty := len(r.members) == 0
	r.mu.Unlock()

	if empty {
		delete(h.rooms, pollID)
	}
	h.mu.Unlock()

	m.stop()
	h.logger.Debug("subscriber left", "poll_id", pollID, "subscriber", sub.ID(), "room_closed", empty)
	return true
}

// Publish queues delta for every member of the poll's room at the time of the
// call and returns how many members that was. It never blocks on delivery.
func (h *Hub) Publish(pollID string, delta models.Delta) int {
	h.mu.RLock()
	r, ok := h.rooms[pollID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}

	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	r.mu.RLock()
	members := make([]*member, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, m)
	}
	r.mu.RUnlock()

	for _, m := range members {
		if dropped := m.enqueue(delta); dropped {
			h.logger.Debug("subscriber queue full, dropped oldest delta",
				"poll_id", pollID, "subscriber", m.sub.ID())
		}
	}
	return len(members)
}

// Send queues delta for a single member of the room. It is used for the
// snapshot a subscriber receives right after joining.
func (h *Hub) Send(pollID string, sub Subscriber, delta models.Delta) bool {
	h.mu.RLock()
	r, ok := h.rooms[pollID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	r.mu.RLock()
	m, ok := r.members[sub]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	m.enqueue(delta)
	return true
}

// Rooms lists the polls that currently have at least one member.
func (h *Hub) Rooms() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Members counts the members of the poll's room.
func (h *Hub) Members(pollID string) int {
	h.mu.RLock()
	r, ok := h.rooms[pollID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Close removes every member and waits for their delivery goroutines to exit.
// It blocks until every in-flight Deliver returns, so subscribers must bound
// their writes. Join fails after Close.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var members []*member
	for _, r := range h.rooms {
		r.mu.Lock()
		for _, m := range r.members {
			members = append(members, m)
		}
		r.members = make(map[Subscriber]*member)
		r.mu.Unlock()
	}
	h.rooms = make(map[string]*room)
	h.mu.Unlock()

	for _, m := range members {
		m.stop()
	}
	h.wg.Wait()
	h.logger.Info("broadcast hub closed", "members", len(members))
}

// run delivers queued deltas to one member in FIFO order. A failed delivery
// evicts the member from the room.
func (h *Hub) run(pollID string, m *member) {
	defer h.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case <-m.ready:
		}

		for _, d := range m.drain() {
			select {
			case <-m.done:
				return
			default:
			}
			if err := m.sub.Deliver(d); err != nil {
				h.logger.Warn("delivery failed, evicting subscriber",
					"poll_id", pollID, "subscriber", m.sub.ID(), "error", err)
				h.remove(pollID, m.sub, m)
				return
			}
		}
	}
}
