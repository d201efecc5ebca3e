// Package discord delivers human-readable status messages to a Discord
// channel through the bot REST API.
//
// Producers call the severity methods (Log, Info, Success, Warning, Error)
// from any goroutine. Each call formats the line, appends it to an unbounded
// FIFO queue and returns a *Receipt the caller may await. A single logical
// dispatcher drains the queue in submission order: at most one send is ever
// in flight per Logger, enforced by an atomic claim rather than a dedicated
// worker goroutine. When Discord answers 429 the dispatcher waits out the
// server-provided retry_after and retries the same message; later messages
// never jump ahead.
//
// Two flush paths cover shutdown: Flush polls until the queue is drained and
// is meant for signal handlers that may block indefinitely, ForcedFlush is a
// bounded wait for unconditional exit hooks and abandons whatever is still
// queued once its ceiling elapses.
package discord
