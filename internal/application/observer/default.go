package observer

import (
	"context"
	"sync/atomic"
)

// Default/SetDefault mirror internal/infrastructure/logger's package-level
// singleton: producers and result consumers notify through Default()
// rather than threading an *ObserverManager through every constructor, so
// adding an observer never touches their call sites.
var defaultManager atomic.Pointer[ObserverManager]

func init() {
	defaultManager.Store(NewObserverManager())
}

// Default returns the process-wide observer manager.
func Default() *ObserverManager {
	return defaultManager.Load()
}

// SetDefault replaces the process-wide observer manager.
func SetDefault(m *ObserverManager) {
	defaultManager.Store(m)
}

// Notify is a convenience wrapper around Default().Notify.
func Notify(ctx context.Context, event Event) {
	Default().Notify(ctx, event)
}
