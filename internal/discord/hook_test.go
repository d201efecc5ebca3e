package discord

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func flushQueue(t *testing.T, l *Logger) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestEscalationHookForwardsErrors(t *testing.T) {
	t.Parallel()
	tr := newScripted(nil)
	l := newTestLogger(tr)
	log := zerolog.New(io.Discard).Hook(EscalationHook{Logger: l, Origin: "watch"})

	log.Error().Msg("db write failed")
	log.Info().Msg("routine line")
	log.Warn().Msg("worrying but not error")
	flushQueue(t, l)

	order := tr.firstAttemptOrder()
	if len(order) != 1 {
		t.Fatalf("sends = %v, want only the error forwarded", order)
	}
	if !strings.Contains(order[0], "[watch] ERROR: db write failed") {
		t.Fatalf("forwarded line = %q", order[0])
	}
	if !strings.HasPrefix(order[0], SeverityError.Marker()) {
		t.Fatalf("forwarded line should be error-formatted: %q", order[0])
	}
}

func TestEscalationHookDefaultsOrigin(t *testing.T) {
	t.Parallel()
	tr := newScripted(nil)
	l := newTestLogger(tr)
	log := zerolog.New(io.Discard).Hook(EscalationHook{Logger: l})

	log.Error().Msg("boom")
	flushQueue(t, l)

	order := tr.firstAttemptOrder()
	if len(order) != 1 || !strings.Contains(order[0], "[local] ERROR: boom") {
		t.Fatalf("sends = %v", order)
	}
}

func TestEscalationHookIgnoresOwnEcho(t *testing.T) {
	t.Parallel()
	tr := newScripted(nil)
	l := newTestLogger(tr)
	log := zerolog.New(io.Discard).Hook(EscalationHook{Logger: l})

	// The delivery core echoes its formatted lines at Error level through the
	// local logger; those must not loop back into the queue.
	log.Error().Msg("🔴 [2026-03-01 00:00:00.000] [app] ERROR: already on its way")
	log.Error().Msg("<@42> 🔴 [2026-03-01 00:00:00.000] [app] ERROR: mentioned variant")
	log.Error().Msg("")
	flushQueue(t, l)

	if order := tr.firstAttemptOrder(); len(order) != 0 {
		t.Fatalf("echoed lines must not be requeued: %v", order)
	}
}

func TestEscalationHookNilLoggerIsInert(t *testing.T) {
	t.Parallel()
	log := zerolog.New(io.Discard).Hook(EscalationHook{})
	log.Error().Msg("nowhere to go") // must not panic
}
