package store

import (
	"context"
	"encoding/json"
	"strconv"

	"mercator-hq/wiretap/pkg/traffic"
)

// Keys of the persisted state.
const (
	KeyLogs      = "logs"
	KeyRecording = "isRecording"
)

// DefaultCapacity is the maximum number of records kept in the log.
const DefaultCapacity = 100

// Outcome describes what Apply did with an incoming record.
type Outcome string

const (
	// OutcomeMerged means the record's id was already present and was merged in place.
	OutcomeMerged Outcome = "merged"
	// OutcomeInserted means the record was prepended as the newest entry.
	OutcomeInserted Outcome = "inserted"
	// OutcomeDropped means a fresh record without URL was discarded.
	OutcomeDropped Outcome = "dropped"
)

// Apply folds rec into records (newest first) and returns the updated slice.
//
// An existing id is merged in place and keeps its position. A new id is
// prepended; a new id without URL is dropped. The result never holds more
// than capacity entries, even when records already did. The input slice is
// not modified.
func Apply(records []*traffic.RequestRecord, rec *traffic.RequestRecord, capacity int) ([]*traffic.RequestRecord, Outcome) {
	for i, existing := range records {
		if existing.ID != rec.ID {
			continue
		}
		merged := existing.Clone()
		merged.Merge(rec)

		out := make([]*traffic.RequestRecord, len(records))
		copy(out, records)
		out[i] = merged
		return trim(out, capacity), OutcomeMerged
	}

	if rec.URL == "" {
		return trim(records, capacity), OutcomeDropped
	}

	n := len(records) + 1
	if capacity > 0 && n > capacity {
		n = capacity
	}
	out := make([]*traffic.RequestRecord, 0, n)
	out = append(out, rec.Clone())
	out = append(out, records[:n-1]...)
	return out, OutcomeInserted
}

// trim drops the oldest entries past capacity.
func trim(records []*traffic.RequestRecord, capacity int) []*traffic.RequestRecord {
	if capacity > 0 && len(records) > capacity {
		return records[:capacity:capacity]
	}
	return records
}

// Log is the typed view of the persisted state held in a Backend.
//
// Save is a read-merge-write and is not safe to call concurrently with itself
// or Clear; callers funnel writes through a serializer.Serializer.
type Log struct {
	backend  Backend
	capacity int
}

// NewLog creates a Log over backend. A non-positive capacity uses DefaultCapacity.
func NewLog(backend Backend, capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{backend: backend, capacity: capacity}
}

// Capacity returns the maximum number of records kept.
func (l *Log) Capacity() int {
	return l.capacity
}

// Records returns the stored records, newest first.
func (l *Log) Records(ctx context.Context) ([]*traffic.RequestRecord, error) {
	data, ok, err := l.backend.Get(ctx, KeyLogs)
	if err != nil {
		return nil, err
	}
	if !ok || len(data) == 0 {
		return []*traffic.RequestRecord{}, nil
	}

	var records []*traffic.RequestRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, traffic.NewStorageError(l.backend.Name(), "decode", err)
	}
	return records, nil
}

// WriteRecords replaces the stored records.
func (l *Log) WriteRecords(ctx context.Context, records []*traffic.RequestRecord) error {
	if records == nil {
		records = []*traffic.RequestRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return traffic.NewStorageError(l.backend.Name(), "encode", err)
	}
	return l.backend.Set(ctx, KeyLogs, data)
}

// Save reads the stored records, applies rec and writes the result back.
// Nothing is written when the record is dropped.
func (l *Log) Save(ctx context.Context, rec *traffic.RequestRecord) (Outcome, error) {
	records, err := l.Records(ctx)
	if err != nil {
		return "", err
	}

	updated, outcome := Apply(records, rec, l.capacity)
	if outcome == OutcomeDropped {
		return outcome, nil
	}

	if err := l.WriteRecords(ctx, updated); err != nil {
		return "", err
	}
	return outcome, nil
}

// Clear removes all stored records.
func (l *Log) Clear(ctx context.Context) error {
	return l.WriteRecords(ctx, nil)
}

// Recording returns the persisted recording flag. It is false when unset.
func (l *Log) Recording(ctx context.Context) (bool, error) {
	data, ok, err := l.backend.Get(ctx, KeyRecording)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	on, err := strconv.ParseBool(string(data))
	if err != nil {
		return false, traffic.NewStorageError(l.backend.Name(), "decode", err)
	}
	return on, nil
}

// SetRecording persists the recording flag.
func (l *Log) SetRecording(ctx context.Context, on bool) error {
	return l.backend.Set(ctx, KeyRecording, []byte(strconv.FormatBool(on)))
}
