// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reconciler

import (
	"errors"
	"sync"
	"time"

	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/tally"
)

// DefaultInterval is the minimum time between two applied deltas.
const DefaultInterval = 100 * time.Millisecond

var (
	ErrAlreadyVoted = errors.New("already voted on this poll")
	ErrVoteInFlight = errors.New("a vote is already in flight")
	ErrNotReady     = errors.New("poll is not loaded")
)

// Phase is the viewer's position in its state machine.
type Phase int

const (
	Loading Phase = iota
	Viewing
	Voting
	Failed
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Viewing:
		return "viewing"
	case Voting:
		return "voting"
	case Failed:
		return "error"
	default:
		return "unknown"
	}
}

// State is what a viewer shows. PendingOption is -1 outside Voting. Err holds
// the fetch failure in Failed and the last rejected vote in Viewing.
type State struct {
	Phase         Phase
	Snapshot      models.Snapshot
	HasVoted      bool
	PendingOption int
	Err           error
}

func (s State) clone() State {
	s.Snapshot = s.Snapshot.Clone()
	return s
}

// Options configures a Viewer.
type Options struct {
	// PollID filters deltas; deltas for other polls are ignored when set.
	PollID string
	// Interval is the minimum spacing of applied deltas. Zero means
	// DefaultInterval.
	Interval time.Duration
	// Voted is the locally persisted "already voted" hint.
	Voted bool
	// OnChange receives a copy of the state after transitions, in order.
	// Calls are serialized; it may call State but must not call the
	// viewer's mutating methods.
	OnChange func(State)
}

// Viewer reconciles one participant's view of a poll: the fetched snapshot,
// its own optimistic vote and the stream of broadcast deltas.
type Viewer struct {
	mu    sync.Mutex
	state State
	hint  bool

	// confirmed is the last authoritative snapshot, restored when a vote is
	// rejected.
	confirmed models.Snapshot
	// held is the newest delta that arrived while it could not be applied.
	held *models.Delta

	// throttle
	interval    time.Duration
	pending     *models.Delta
	lastApplied time.Time
	armed       bool
	stopTimer   func() bool
	closed      bool

	now       func() time.Time
	afterFunc func(time.Duration, func()) func() bool

	pollID   string
	onChange func(State)

	// seq numbers commits under mu; notified is the last one delivered,
	// guarded by notifyMu.
	seq      uint64
	notifyMu sync.Mutex
	notified uint64
}

// NewViewer creates a viewer in the Loading phase.
func NewViewer(opts Options) *Viewer {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Viewer{
		state:    State{Phase: Loading, HasVoted: opts.Voted, PendingOption: -1},
		hint:     opts.Voted,
		interval: interval,
		now:      time.Now,
		afterFunc: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
		pollID:   opts.PollID,
		onChange: opts.OnChange,
	}
}

// State returns a copy of the current state.
func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.clone()
}

// FetchSucceeded installs a fetched snapshot. hasVoted can only add to what
// the viewer already knows, and a snapshot older than the one shown only
// contributes hasVoted.
func (v *Viewer) FetchSucceeded(snap models.Snapshot, hasVoted bool) {
	v.mu.Lock()
	if v.state.Phase == Voting {
		// The vote's own response will be authoritative; keep the fetch as a
		// candidate delta.
		d := snap.Delta()
		v.hold(&d)
		v.mu.Unlock()
		return
	}

	if v.state.Phase == Viewing && snap.TotalVotes < v.state.Snapshot.TotalVotes {
		// A refetch answered before a delta that is already shown.
		v.state.HasVoted = v.state.HasVoted || hasVoted
		v.state.Err = nil
		v.commit()
		return
	}

	if v.pollID == "" {
		v.pollID = snap.PollID
	}
	v.state.Phase = Viewing
	v.state.Snapshot = snap.Clone()
	v.state.HasVoted = v.state.HasVoted || hasVoted || v.hint
	v.state.PendingOption = -1
	v.state.Err = nil
	v.confirmed = snap.Clone()
	v.applyHeld()
	v.commit()
}

// FetchFailed records a failed fetch. A viewer that never loaded moves to
// Failed; one already showing a poll keeps it and only records err.
func (v *Viewer) FetchFailed(err error) {
	v.mu.Lock()
	switch v.state.Phase {
	case Loading, Failed:
		v.state.Phase = Failed
		v.state.Err = err
	case Viewing:
		v.state.Err = err
	case Voting:
		v.mu.Unlock()
		return
	}
	v.commit()
}

// Retry moves a failed viewer back to Loading.
func (v *Viewer) Retry() bool {
	v.mu.Lock()
	if v.state.Phase != Failed {
		v.mu.Unlock()
		return false
	}
	v.state.Phase = Loading
	v.state.Err = nil
	v.commit()
	return true
}

// Select starts a vote for option and applies the optimistic increment.
func (v *Viewer) Select(option int) error {
	v.mu.Lock()
	switch {
	case v.state.Phase == Voting:
		v.mu.Unlock()
		return ErrVoteInFlight
	case v.state.Phase != Viewing:
		v.mu.Unlock()
		return ErrNotReady
	case v.state.HasVoted:
		v.mu.Unlock()
		return ErrAlreadyVoted
	case option < 0 || option >= len(v.state.Snapshot.Options):
		v.mu.Unlock()
		return models.ErrInvalidOption
	}

	v.confirmed = v.state.Snapshot.Clone()
	v.state.Snapshot = tally.Increment(v.state.Snapshot, option)
	v.state.Phase = Voting
	v.state.PendingOption = option
	v.state.Err = nil
	v.commit()
	return nil
}

// VoteAccepted replaces the optimistic guess with the snapshot the server
// returned for the vote.
func (v *Viewer) VoteAccepted(snap models.Snapshot) {
	v.mu.Lock()
	if v.state.Phase != Voting {
		v.mu.Unlock()
		return
	}
	v.state.Phase = Viewing
	v.state.Snapshot = snap.Clone()
	v.state.HasVoted = true
	v.state.PendingOption = -1
	v.state.Err = nil
	v.confirmed = snap.Clone()
	v.applyHeld()
	v.commit()
}

// VoteRejected rolls back the optimistic increment. A duplicate vote marks
// the viewer as voted; any other error leaves it free to retry.
func (v *Viewer) VoteRejected(err error) {
	v.mu.Lock()
	if v.state.Phase != Voting {
		v.mu.Unlock()
		return
	}
	v.state.Phase = Viewing
	v.state.Snapshot = v.confirmed.Clone()
	v.state.PendingOption = -1
	v.state.Err = err
	v.state.HasVoted = errors.Is(err, models.ErrDuplicateVote)
	v.applyHeld()
	v.commit()
}

// OnDelta offers a broadcast delta. Deltas are coalesced so at most one is
// applied per interval, and the newest one wins.
func (v *Viewer) OnDelta(d models.Delta) {
	v.mu.Lock()
	if v.closed || (v.pollID != "" && d.PollID != v.pollID) {
		v.mu.Unlock()
		return
	}

	if v.pending == nil || d.TotalVotes >= v.pending.TotalVotes {
		dc := cloneDelta(d)
		v.pending = &dc
	}
	if v.armed {
		v.mu.Unlock()
		return
	}

	wait := v.interval - v.now().Sub(v.lastApplied)
	if wait <= 0 {
		v.flushLocked()
		return
	}
	v.armed = true
	v.stopTimer = v.afterFunc(wait, v.flush)
	v.mu.Unlock()
}

// Close stops the throttle timer. Deltas offered afterwards are ignored.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.pending = nil
	if v.armed && v.stopTimer != nil {
		v.stopTimer()
	}
	v.armed = false
}

func (v *Viewer) flush() {
	v.mu.Lock()
	v.armed = false
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.flushLocked()
}

// flushLocked applies the pending delta and releases v.mu.
func (v *Viewer) flushLocked() {
	d := v.pending
	v.pending = nil
	if d == nil {
		v.mu.Unlock()
		return
	}
	v.lastApplied = v.now()

	if v.state.Phase != Viewing {
		v.hold(d)
		v.mu.Unlock()
		return
	}
	if !v.apply(*d) {
		v.mu.Unlock()
		return
	}
	v.commit()
}

// hold keeps d for later if it is the newest seen so far.
func (v *Viewer) hold(d *models.Delta) {
	if v.held == nil || d.TotalVotes >= v.held.TotalVotes {
		v.held = d
	}
}

// applyHeld applies a held delta newer than the displayed snapshot.
func (v *Viewer) applyHeld() {
	d := v.held
	v.held = nil
	if d != nil {
		v.apply(*d)
	}
}

// apply replaces the displayed counts with d unless d is older than what is
// shown or does not fit the poll.
func (v *Viewer) apply(d models.Delta) bool {
	snap := v.state.Snapshot
	if d.TotalVotes < snap.TotalVotes || len(d.Options) != len(snap.Options) {
		return false
	}
	next := snap.Clone()
	next.Options = append([]models.Option(nil), d.Options...)
	next.TotalVotes = d.TotalVotes
	next.Percentages = append([]float64(nil), d.Percentages...)
	v.state.Snapshot = next
	v.confirmed = next.Clone()
	return true
}

// commit releases v.mu and notifies the observer of the new state. A state
// overtaken by a later commit before its turn is skipped, so the observer
// never sees an older state after a newer one.
func (v *Viewer) commit() {
	v.seq++
	seq := v.seq
	st := v.state.clone()
	v.mu.Unlock()

	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()
	if seq <= v.notified {
		return
	}
	v.notified = seq
	if v.onChange != nil {
		v.onChange(st)
	}
}

func cloneDelta(d models.Delta) models.Delta {
	d.Options = append([]models.Option(nil), d.Options...)
	d.Percentages = append([]float64(nil), d.Percentages...)
	return d
}
