// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"sync"

	"github.com/danielhkuo/livepoll/models"
)

// member is one subscriber's place in one room: a bounded queue drained by
// its own goroutine.
type member struct {
	sub  Subscriber
	size int

	mu    sync.Mutex
	queue []models.Delta

	ready    chan struct{} // capacity 1, signals a non-empty queue
	done     chan struct{}
	stopOnce sync.Once
}

func newMember(sub Subscriber, size int) *member {
	return &member{
		sub:   sub,
		size:  size,
		queue: make([]models.Delta, 0, size),
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// enqueue appends d, discarding the oldest delta when the queue is full.
// It reports whether something was discarded.
func (m *member) enqueue(d models.Delta) bool {
	m.mu.Lock()
	dropped := false
	if len(m.queue) >= m.size {
		copy(m.queue, m.queue[1:])
		m.queue = m.queue[:len(m.queue)-1]
		dropped = true
	}
	m.queue = append(m.queue, d)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return dropped
}

// drain takes everything queued so far.
func (m *member) drain() []models.Delta {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil
	}
	out := make([]models.Delta, len(m.queue))
	copy(out, m.queue)
	m.queue = m.queue[:0]
	return out
}

func (m *member) stop() {
	m.stopOnce.Do(func() { close(m.done) })
}
