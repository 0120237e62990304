package health

import (
	"context"
	"fmt"
)

// Getter is the read side of a storage backend.
type Getter interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// StorageCheck reads key from the backend. A missing key is healthy;
// only a read error fails the check.
func StorageCheck(g Getter, key string) CheckFunc {
	return func(ctx context.Context) error {
		if _, _, err := g.Get(ctx, key); err != nil {
			return fmt.Errorf("storage read failed: %w", err)
		}
		return nil
	}
}

// QueueDepther reports how many items wait in a queue.
type QueueDepther interface {
	Pending() int
}

// QueueCheck fails when more than max items are waiting. It is meant as a
// non-critical check: a backlog slows saves but loses nothing.
func QueueCheck(q QueueDepther, max int) CheckFunc {
	return func(ctx context.Context) error {
		if n := q.Pending(); n > max {
			return fmt.Errorf("%d waiting (limit %d)", n, max)
		}
		return nil
	}
}
