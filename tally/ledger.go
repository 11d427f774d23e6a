// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"sync"

	"github.com/danielhkuo/livepoll/models"
)

// Ledger records which participant tokens have voted on one poll.
//
// Entries are write-once. Reads go through sync.Map and take no lock; add is
// only called inside the owning poll's critical section, so a lookup followed
// by add cannot interleave with another writer.
type Ledger struct {
	entries sync.Map // participant token -> models.VoteRecord
}

func newLedger(records []models.VoteRecord) *Ledger {
	l := &Ledger{}
	for _, rec := range records {
		l.entries.Store(rec.ParticipantToken, rec)
	}
	return l
}

// Has reports whether token already has a vote record.
func (l *Ledger) Has(token string) bool {
	_, ok := l.entries.Load(token)
	return ok
}

// Get returns the record for token, if any.
func (l *Ledger) Get(token string) (models.VoteRecord, bool) {
	v, ok := l.entries.Load(token)
	if !ok {
		return models.VoteRecord{}, false
	}
	return v.(models.VoteRecord), true
}

// add stores rec unless its token is already present, and reports whether
// it did.
func (l *Ledger) add(rec models.VoteRecord) bool {
	_, loaded := l.entries.LoadOrStore(rec.ParticipantToken, rec)
	return !loaded
}

// Len counts the records. It walks the map and is meant for tests and logs.
func (l *Ledger) Len() int {
	n := 0
	l.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
