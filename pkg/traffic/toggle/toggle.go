package toggle

import (
	"context"
	"log/slog"
	"sync"
)

// Store persists the recording flag. *store.Log implements it.
type Store interface {
	Recording(ctx context.Context) (bool, error)
	SetRecording(ctx context.Context, on bool) error
}

// Indicator is the user-visible status badge.
type Indicator interface {
	Show(ctx context.Context)
	Clear(ctx context.Context)
}

// Toggle is the persisted recording switch.
type Toggle struct {
	store     Store
	indicator Indicator
	logger    *slog.Logger

	// mu orders Set calls so the indicator matches the last persisted value.
	mu sync.Mutex
}

// New creates a toggle over store. indicator may be nil.
func New(store Store, indicator Indicator) *Toggle {
	return &Toggle{
		store:     store,
		indicator: indicator,
		logger:    slog.Default().With("component", "traffic.toggle"),
	}
}

// Load reads the persisted value, initializes it to false when absent and
// syncs the indicator.
func (t *Toggle) Load(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	on, err := t.store.Recording(ctx)
	if err != nil {
		return false, err
	}
	if !on {
		if err := t.store.SetRecording(ctx, false); err != nil {
			return false, err
		}
	}
	t.indicate(ctx, on)

	t.logger.Info("recording state loaded", "enabled", on)
	return on, nil
}

// Set persists on and updates the indicator.
func (t *Toggle) Set(ctx context.Context, on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.SetRecording(ctx, on); err != nil {
		t.logger.Error("failed to persist recording state",
			"enabled", on,
			"error", err,
		)
		return err
	}
	t.indicate(ctx, on)

	t.logger.Info("recording state changed", "enabled", on)
	return nil
}

// Enabled reads the persisted value.
func (t *Toggle) Enabled(ctx context.Context) (bool, error) {
	return t.store.Recording(ctx)
}

func (t *Toggle) indicate(ctx context.Context, on bool) {
	if t.indicator == nil {
		return
	}
	if on {
		t.indicator.Show(ctx)
	} else {
		t.indicator.Clear(ctx)
	}
}
