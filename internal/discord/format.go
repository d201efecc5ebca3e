package discord

import (
	"fmt"
	"strings"
	"time"
)

// Severity classifies a message for formatting purposes only; it does not
// affect queueing or delivery.
type Severity int

const (
	SeverityLog Severity = iota
	SeverityInfo
	SeveritySuccess
	SeverityWarning
	SeverityError
)

// Marker returns the emoji that leads a formatted line.
func (s Severity) Marker() string {
	switch s {
	case SeverityInfo:
		return "🔵"
	case SeveritySuccess:
		return "🟢"
	case SeverityWarning:
		return "🟡"
	case SeverityError:
		return "🔴"
	default:
		return "📝"
	}
}

// Label returns the upper-case severity name used in the formatted line.
func (s Severity) Label() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeveritySuccess:
		return "SUCCESS"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "LOG"
	}
}

const timestampLayout = "2006-01-02 15:04:05.000"

// formatMessage builds the final delivery text:
//
//	<marker> [yyyy-MM-dd HH:mm:ss.mmm] [origin] SEVERITY: text
//
// Error lines are prefixed with a user mention when an escalation user is
// configured. Text is passed through verbatim, empty or not.
func formatMessage(sev Severity, text, origin, mentionUserID string, at time.Time) string {
	line := fmt.Sprintf("%s [%s] [%s] %s: %s",
		sev.Marker(), at.Format(timestampLayout), origin, sev.Label(), text)
	if sev == SeverityError && mentionUserID != "" {
		line = "<@" + mentionUserID + "> " + line
	}
	return line
}

// alreadyFormatted reports whether text is a line this package produced.
// The escalation hook uses it to avoid re-queueing echoed output.
func alreadyFormatted(text string) bool {
	if strings.HasPrefix(text, "<@") {
		return true
	}
	for _, sev := range []Severity{SeverityLog, SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError} {
		if strings.HasPrefix(text, sev.Marker()) {
			return true
		}
	}
	return false
}
