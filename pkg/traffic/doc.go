// Package traffic defines the records, lifecycle events and errors shared by
// the Wiretap recording pipeline.
//
// # Pipeline
//
// Lifecycle events flow from an interception layer into the correlator,
// which merges them into pending records and forwards snapshots to the write
// serializer. The serializer applies them one at a time to a bounded,
// durable log:
//
//	EventSource -> correlator.Correlator -> serializer.Serializer -> store.Log
//
// The override rule manager (package override) and the recording toggle
// (package toggle) are driven independently by control messages.
//
// # Merging
//
// RequestRecord.Merge is the single merge rule used both for pending records
// and for records already in the log. Non-empty scalars overwrite, header maps
// merge key-wise, and a status code never reverts to 0:
//
//	rec := traffic.NewRecord("7", time.Now())
//	rec.Merge(&traffic.RequestRecord{URL: "https://api.x/y", Method: "GET"})
//	rec.Merge(&traffic.RequestRecord{StatusCode: 200})
package traffic
