package correlator

import (
	"sync"
	"time"

	"mercator-hq/wiretap/pkg/traffic"
)

type entry struct {
	rec     *traffic.RequestRecord
	timer   *time.Timer
	created time.Time
}

// PendingTable holds the partial records of in-flight requests keyed by
// request id. All methods are safe for concurrent use.
type PendingTable struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewPendingTable creates an empty table.
func NewPendingTable() *PendingTable {
	return &PendingTable{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Apply merges partial into the entry for id, creating it when absent, and
// passes a deep copy of the merged record to emit.
//
// emit runs while the table lock is held so that snapshots for one id reach
// the caller in merge order. It must not call back into the table.
func (t *PendingTable) Apply(id string, partial *traffic.RequestRecord, emit func(*traffic.RequestRecord)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		now := t.now()
		e = &entry{rec: traffic.NewRecord(id, now), created: now}
		t.entries[id] = e
	}
	e.rec.Merge(partial)

	if emit != nil {
		emit(e.rec.Clone())
	}
}

// ScheduleRemoval removes the entry for id after delay. A removal already
// armed for the entry is replaced. Entries recreated in the meantime are not
// affected by an older timer.
func (t *PendingTable) ScheduleRemoval(id string, delay time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.entries[id] == e {
			delete(t.entries, id)
		}
	})
}

// Get returns a copy of the pending record for id.
func (t *PendingTable) Get(id string) (*traffic.RequestRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return nil, false
	}
	return e.rec.Clone(), true
}

// Len returns the number of pending entries.
func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Sweep removes entries created before cutoff that never reached a final
// state, and returns how many were removed.
func (t *PendingTable) Sweep(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, e := range t.entries {
		if e.timer == nil && e.created.Before(cutoff) {
			delete(t.entries, id)
			removed++
		}
	}
	return removed
}

// Close stops all armed removal timers and empties the table.
func (t *PendingTable) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	t.entries = make(map[string]*entry)
}
