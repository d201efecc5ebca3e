package discord

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

var lineRe = regexp.MustCompile(`^(\S+) \[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3})\] \[([^\]]*)\] ([A-Z]+): (.*)$`)

func TestFormatMessageShape(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 3, 7, 9, 5, 3, 42_000_000, time.UTC)

	tests := []struct {
		sev    Severity
		marker string
		label  string
	}{
		{SeverityLog, "📝", "LOG"},
		{SeverityInfo, "🔵", "INFO"},
		{SeveritySuccess, "🟢", "SUCCESS"},
		{SeverityWarning, "🟡", "WARNING"},
		{SeverityError, "🔴", "ERROR"},
	}
	for _, tt := range tests {
		line := formatMessage(tt.sev, "db update done", "clan_info:#ABC", "", at)
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			t.Fatalf("line %q does not match expected shape", line)
		}
		if m[1] != tt.marker {
			t.Fatalf("marker = %q, want %q", m[1], tt.marker)
		}
		if m[2] != "2026-03-07 09:05:03.042" {
			t.Fatalf("timestamp = %q", m[2])
		}
		if m[3] != "clan_info:#ABC" {
			t.Fatalf("origin = %q", m[3])
		}
		if m[4] != tt.label {
			t.Fatalf("label = %q, want %q", m[4], tt.label)
		}
		if m[5] != "db update done" {
			t.Fatalf("text = %q", m[5])
		}
	}
}

func TestFormatMessageMentionOnErrorOnly(t *testing.T) {
	t.Parallel()
	at := time.Now()

	line := formatMessage(SeverityError, "boom", "test", "42", at)
	if !strings.HasPrefix(line, "<@42> 🔴") {
		t.Fatalf("error line missing mention prefix: %q", line)
	}

	line = formatMessage(SeverityWarning, "boom", "test", "42", at)
	if strings.Contains(line, "<@") {
		t.Fatalf("non-error line should not mention: %q", line)
	}

	line = formatMessage(SeverityError, "boom", "test", "", at)
	if strings.Contains(line, "<@") {
		t.Fatalf("unconfigured mention should be absent: %q", line)
	}
}

func TestFormatMessagePassesTextVerbatim(t *testing.T) {
	t.Parallel()
	line := formatMessage(SeverityLog, "", "origin", "", time.Now())
	if !strings.HasSuffix(line, "LOG: ") {
		t.Fatalf("empty text should pass through: %q", line)
	}

	odd := "line1\nline2\t\"quoted\""
	line = formatMessage(SeverityLog, odd, "origin", "", time.Now())
	if !strings.HasSuffix(line, "LOG: "+odd) {
		t.Fatalf("text altered: %q", line)
	}
}

func TestAlreadyFormatted(t *testing.T) {
	t.Parallel()
	at := time.Now()
	for _, sev := range []Severity{SeverityLog, SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError} {
		line := formatMessage(sev, "x", "o", "7", at)
		if !alreadyFormatted(line) {
			t.Fatalf("formatted line not recognized: %q", line)
		}
	}
	if alreadyFormatted("plain local error") {
		t.Fatal("plain text misclassified as formatted")
	}
}
