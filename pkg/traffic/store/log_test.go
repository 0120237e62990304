package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mercator-hq/wiretap/pkg/traffic"
)

func newRecord(id, url string) *traffic.RequestRecord {
	rec := traffic.NewRecord(id, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	rec.URL = url
	rec.Method = "GET"
	rec.Type = traffic.ResourceXHR
	return rec
}

func TestApply(t *testing.T) {
	existing := []*traffic.RequestRecord{
		newRecord("b", "https://api.x/b"),
		newRecord("a", "https://api.x/a"),
	}

	tests := []struct {
		name    string
		rec     *traffic.RequestRecord
		want    Outcome
		wantIDs []string
	}{
		{
			name:    "new id is prepended",
			rec:     newRecord("c", "https://api.x/c"),
			want:    OutcomeInserted,
			wantIDs: []string{"c", "b", "a"},
		},
		{
			name:    "existing id keeps position",
			rec:     &traffic.RequestRecord{ID: "a", StatusCode: 200},
			want:    OutcomeMerged,
			wantIDs: []string{"b", "a"},
		},
		{
			name:    "new id without url is dropped",
			rec:     &traffic.RequestRecord{ID: "z", StatusCode: 500},
			want:    OutcomeDropped,
			wantIDs: []string{"b", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome := Apply(existing, tt.rec, 10)
			if outcome != tt.want {
				t.Errorf("expected outcome %s, got %s", tt.want, outcome)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("expected %d records, got %d", len(tt.wantIDs), len(got))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("position %d: expected id %s, got %s", i, id, got[i].ID)
				}
			}
		})
	}

	if existing[1].StatusCode != 0 {
		t.Error("Apply modified its input slice")
	}
}

func TestApply_EvictsOldestPastCapacity(t *testing.T) {
	var records []*traffic.RequestRecord
	for i := 1; i <= 101; i++ {
		records, _ = Apply(records, newRecord(fmt.Sprint(i), fmt.Sprintf("https://api.x/%d", i)), DefaultCapacity)
	}

	if len(records) != DefaultCapacity {
		t.Fatalf("expected %d records, got %d", DefaultCapacity, len(records))
	}
	if records[0].ID != "101" {
		t.Errorf("expected newest record first, got %s", records[0].ID)
	}
	for _, r := range records {
		if r.ID == "1" {
			t.Fatal("expected oldest record to be evicted")
		}
	}
}

func TestApply_MergeAtCapacityDoesNotEvict(t *testing.T) {
	var records []*traffic.RequestRecord
	for i := 1; i <= 3; i++ {
		records, _ = Apply(records, newRecord(fmt.Sprint(i), "https://api.x/"), 3)
	}

	records, outcome := Apply(records, &traffic.RequestRecord{ID: "1", StatusCode: 204}, 3)
	if outcome != OutcomeMerged {
		t.Fatalf("expected merge, got %s", outcome)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[2].ID != "1" || records[2].StatusCode != 204 {
		t.Errorf("expected record 1 merged in place, got %+v", records[2])
	}
}

func TestApply_TrimsListAboveCapacity(t *testing.T) {
	var records []*traffic.RequestRecord
	for i := 5; i >= 1; i-- {
		records = append(records, newRecord(fmt.Sprint(i), "https://api.x/"))
	}

	tests := []struct {
		name string
		rec  *traffic.RequestRecord
		want Outcome
	}{
		{"merge", &traffic.RequestRecord{ID: "5", StatusCode: 200}, OutcomeMerged},
		{"merge past capacity", &traffic.RequestRecord{ID: "1", StatusCode: 200}, OutcomeMerged},
		{"drop", &traffic.RequestRecord{ID: "z", StatusCode: 500}, OutcomeDropped},
		{"insert", newRecord("6", "https://api.x/"), OutcomeInserted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome := Apply(records, tt.rec, 3)
			if outcome != tt.want {
				t.Errorf("expected outcome %s, got %s", tt.want, outcome)
			}
			if len(got) != 3 {
				t.Fatalf("expected list trimmed to 3, got %d", len(got))
			}
			if len(records) != 5 {
				t.Errorf("expected input untouched, got %d records", len(records))
			}
		})
	}
}

func TestLog_SaveAfterCapacityLowered(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	var seeded []*traffic.RequestRecord
	for i := 5; i >= 1; i-- {
		seeded = append(seeded, newRecord(fmt.Sprint(i), "https://api.x/"))
	}
	if err := NewLog(backend, 10).WriteRecords(ctx, seeded); err != nil {
		t.Fatal(err)
	}

	log := NewLog(backend, 3)
	if _, err := log.Save(ctx, &traffic.RequestRecord{ID: "4", StatusCode: 200}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	records, err := log.Records(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records after merge, got %d", len(records))
	}
	if records[1].ID != "4" || records[1].StatusCode != 200 {
		t.Errorf("expected record 4 merged in place, got %+v", records[1])
	}
}

func TestLog_SaveScenario(t *testing.T) {
	ctx := context.Background()
	log := NewLog(NewMemoryBackend(), 0)

	saves := []*traffic.RequestRecord{
		{ID: "7", URL: "https://api.x/y", Method: "GET", Type: traffic.ResourceXHR},
		{ID: "7", RequestHeaders: map[string]string{"Authorization": "Bearer t"}},
		{ID: "7", ResponseHeaders: map[string]string{"Content-Type": "application/json"}},
		{ID: "7", StatusCode: 200},
	}
	for _, rec := range saves {
		if _, err := log.Save(ctx, rec); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
	}

	records, err := log.Records(ctx)
	if err != nil {
		t.Fatalf("Records() failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}

	got := records[0]
	if got.URL != "https://api.x/y" || got.Method != "GET" || got.StatusCode != 200 {
		t.Errorf("unexpected merged record: %+v", got)
	}
	if got.RequestHeaders["Authorization"] != "Bearer t" {
		t.Errorf("expected request header, got %v", got.RequestHeaders)
	}
	if got.ResponseHeaders["Content-Type"] != "application/json" {
		t.Errorf("expected response header, got %v", got.ResponseHeaders)
	}
}

func TestLog_SaveDroppedWritesNothing(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	log := NewLog(backend, 0)

	outcome, err := log.Save(ctx, &traffic.RequestRecord{ID: "x", StatusCode: 200})
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if outcome != OutcomeDropped {
		t.Errorf("expected dropped, got %s", outcome)
	}
	if _, ok, _ := backend.Get(ctx, KeyLogs); ok {
		t.Error("expected no logs key to be written")
	}
}

func TestLog_ClearAndRecords(t *testing.T) {
	ctx := context.Background()
	log := NewLog(NewMemoryBackend(), 5)

	records, err := log.Records(ctx)
	if err != nil {
		t.Fatalf("Records() failed: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", records)
	}

	if _, err := log.Save(ctx, newRecord("1", "https://api.x/1")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := log.Clear(ctx); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}

	records, _ = log.Records(ctx)
	if len(records) != 0 {
		t.Errorf("expected no records after Clear, got %d", len(records))
	}
}

func TestLog_RecordsDecodeError(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	_ = backend.Set(ctx, KeyLogs, []byte("not json"))

	_, err := NewLog(backend, 0).Records(ctx)
	var storageErr *traffic.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if storageErr.Operation != "decode" || storageErr.Backend != "memory" {
		t.Errorf("unexpected error fields: %+v", storageErr)
	}
}

func TestLog_Recording(t *testing.T) {
	ctx := context.Background()
	log := NewLog(NewMemoryBackend(), 0)

	on, err := log.Recording(ctx)
	if err != nil {
		t.Fatalf("Recording() failed: %v", err)
	}
	if on {
		t.Error("expected recording to default to false")
	}

	if err := log.SetRecording(ctx, true); err != nil {
		t.Fatalf("SetRecording() failed: %v", err)
	}
	on, _ = log.Recording(ctx)
	if !on {
		t.Error("expected recording to be true")
	}
}

func TestMemoryBackend_ClosedAndCancelled(t *testing.T) {
	backend := NewMemoryBackend()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := backend.Set(ctx, "k", []byte("v")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	_ = backend.Close()
	if _, _, err := backend.Get(context.Background(), "k"); err == nil {
		t.Error("expected error after Close")
	}
}

func TestMemoryBackend_CopiesValues(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	value := []byte("abc")
	_ = backend.Set(ctx, "k", value)
	value[0] = 'z'

	got, ok, err := backend.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get() failed: ok=%v err=%v", ok, err)
	}
	if string(got) != "abc" {
		t.Errorf("expected stored value to be isolated, got %q", got)
	}
}
