package discord

import (
	"context"
	"time"
)

const (
	flushPollInterval  = 100 * time.Millisecond
	forcedPollInterval = 10 * time.Millisecond
)

// Flush blocks until every queued message has been resolved or ctx is done.
// There is no upper bound on the wait; use it from shutdown paths that may
// block, typically after a SIGINT/SIGTERM.
func (l *Logger) Flush(ctx context.Context) error {
	ticker := time.NewTicker(flushPollInterval)
	defer ticker.Stop()
	for {
		if l.drained() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ForcedFlush waits for the queue to drain and gives up once the ceiling
// elapses, reporting whether the queue was drained. It schedules no new work,
// which makes it usable from an unconditional process-exit hook; messages
// still queued when the ceiling hits are abandoned.
func (l *Logger) ForcedFlush(ceiling time.Duration) bool {
	deadline := time.Now().Add(ceiling)
	for time.Now().Before(deadline) {
		if l.drained() {
			return true
		}
		time.Sleep(forcedPollInterval)
	}
	return l.drained()
}
