// Package serializer provides the write serializer that guards the record
// log against lost updates.
//
// Every save is a read-merge-write of the whole "logs" key, so two saves
// running at once can overwrite each other. The Serializer queues snapshots in
// arrival order and runs them one at a time on a drain goroutine that exists
// only while there is work.
//
//	s := serializer.New(log, nil, serializer.WithMetrics(m))
//	defer s.Close(ctx)
//
//	s.Enqueue(rec) // never blocks
//
//	// Clear runs between saves, never during one.
//	s.Do(ctx, log.Clear)
//
// Failed saves are logged and counted; they are not retried.
package serializer
