package discord

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrMissingToken   = errors.New("discord: bot token is required")
	ErrMissingChannel = errors.New("discord: channel id is required")
)

// DefaultBaseURL is the Discord REST API root.
const DefaultBaseURL = "https://discord.com/api/v10"

// Config carries the delivery target. Token and ChannelID are mandatory;
// an empty MentionUserID disables the error-escalation mention.
type Config struct {
	Token     string
	ChannelID string
	// MentionUserID is mentioned ahead of every error line when set.
	MentionUserID string
	// BaseURL overrides the API root; tests point it at a local server.
	BaseURL string
}

// Logger is the ordered delivery queue for one Discord channel. Construct it
// once and pass it to whoever needs to report; methods are safe for
// concurrent use.
//
// The local zerolog logger passed to New receives an echo of every queued
// line plus transport diagnostics. It must not carry an EscalationHook
// pointing back at this Logger.
type Logger struct {
	cfg       Config
	transport Transport
	log       zerolog.Logger

	queue messageQueue
	// draining is the dispatcher claim: true while some goroutine holds the
	// exclusive right to call the transport.
	draining atomic.Bool
}

// New validates the configuration and builds a Logger backed by the REST
// transport. It performs no network I/O.
func New(cfg Config, log zerolog.Logger) (*Logger, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingToken
	}
	if strings.TrimSpace(cfg.ChannelID) == "" {
		return nil, ErrMissingChannel
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Logger{
		cfg:       cfg,
		transport: newRESTTransport(base, cfg.ChannelID, cfg.Token, log),
		log:       log,
	}, nil
}

// Log queues a plain message. origin names the logical producer and appears
// verbatim in the formatted line.
func (l *Logger) Log(text, origin string) *Receipt {
	return l.submit(SeverityLog, text, origin)
}

// Info queues an informational message.
func (l *Logger) Info(text, origin string) *Receipt {
	return l.submit(SeverityInfo, text, origin)
}

// Success queues a success message.
func (l *Logger) Success(text, origin string) *Receipt {
	return l.submit(SeveritySuccess, text, origin)
}

// Warning queues a warning message.
func (l *Logger) Warning(text, origin string) *Receipt {
	return l.submit(SeverityWarning, text, origin)
}

// Error queues an error message. When an escalation user is configured the
// line carries a leading mention.
func (l *Logger) Error(text, origin string) *Receipt {
	return l.submit(SeverityError, text, origin)
}

func (l *Logger) submit(sev Severity, text, origin string) *Receipt {
	line := formatMessage(sev, text, origin, l.cfg.MentionUserID, time.Now())
	l.echo(sev, line)

	r := newReceipt()
	l.queue.push(entry{text: line, receipt: r})
	l.kick()
	return r
}

// echo mirrors the formatted line to the local logger so the console carries
// the same record that is on its way to Discord.
func (l *Logger) echo(sev Severity, line string) {
	switch sev {
	case SeverityError:
		l.log.Error().Msg(line)
	case SeverityWarning:
		l.log.Warn().Msg(line)
	default:
		l.log.Info().Msg(line)
	}
}

// kick claims the drain right if it is free. Exactly one caller wins;
// losers return immediately because the winner will also consume their
// entry, which is already queued.
func (l *Logger) kick() {
	if !l.draining.CompareAndSwap(false, true) {
		return
	}
	go l.drain()
}

// drain delivers queued messages in order until the queue is observed empty,
// then releases the claim. A producer may push between the last pop and the
// release and lose its own CAS in kick, so after releasing the claim the
// drainer re-checks the queue and re-arms itself if anything is pending.
func (l *Logger) drain() {
	for {
		for {
			e, ok := l.queue.pop()
			if !ok {
				break
			}
			e.receipt.resolve(l.deliver(e.text))
		}
		l.draining.Store(false)
		if l.queue.len() == 0 {
			return
		}
		if !l.draining.CompareAndSwap(false, true) {
			return
		}
	}
}

// deliver attempts one message until the endpoint accepts or terminally
// rejects it. Rate-limit responses suspend this message only; later entries
// stay queued behind it. There is no retry ceiling: an endpoint that never
// stops answering 429 holds the dispatcher on this message and starves the
// rest of the queue (ForcedFlush is the only bound at shutdown).
func (l *Logger) deliver(text string) bool {
	for {
		out := l.transport.Send(text)
		switch out.Status {
		case Delivered:
			return true
		case Failed:
			return false
		case RateLimited:
			time.Sleep(out.RetryAfter)
		}
	}
}

// drained reports whether the queue is empty and no dispatcher is active.
func (l *Logger) drained() bool {
	return l.queue.len() == 0 && !l.draining.Load()
}
