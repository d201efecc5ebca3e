package discord

import "github.com/rs/zerolog"

// EscalationHook forwards Error-level events from a local zerolog logger to
// Discord, so failures logged anywhere in the process surface in the channel
// without an explicit call.
//
// Attach it to the application logger only, never to the logger passed into
// New: the delivery core echoes its own lines at Error level and the hook
// relies on alreadyFormatted to break that cycle.
type EscalationHook struct {
	Logger *Logger
	// Origin labels forwarded lines; defaults to "local".
	Origin string
}

func (h EscalationHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if h.Logger == nil || level < zerolog.ErrorLevel || msg == "" {
		return
	}
	if alreadyFormatted(msg) {
		return
	}
	origin := h.Origin
	if origin == "" {
		origin = "local"
	}
	h.Logger.Error(msg, origin)
}
