package discord

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Status classifies the result of one delivery attempt.
type Status int

const (
	// Delivered means the endpoint accepted the message.
	Delivered Status = iota
	// RateLimited means the endpoint asked us to wait before retrying the
	// same message.
	RateLimited
	// Failed is terminal for the message: rejected content and unreachable
	// network are not distinguished at this layer.
	Failed
)

// Outcome is the classified result of a send attempt. RetryAfter is only set
// for RateLimited.
type Outcome struct {
	Status     Status
	RetryAfter time.Duration
}

// Transport performs one synchronous delivery attempt.
type Transport interface {
	Send(text string) Outcome
}

// defaultRetryAfter is used when a 429 body cannot be parsed.
const defaultRetryAfter = time.Second

type restTransport struct {
	url    string
	token  string
	client *http.Client
	log    zerolog.Logger
}

func newRESTTransport(baseURL, channelID, token string, log zerolog.Logger) *restTransport {
	return &restTransport{
		url:    baseURL + "/channels/" + channelID + "/messages",
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

func (t *restTransport) Send(text string) Outcome {
	payload, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		t.log.Error().Err(err).Msg("discord payload marshal failed")
		return Outcome{Status: Failed}
	}

	req, err := http.NewRequest(http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		t.log.Error().Err(err).Msg("discord request build failed")
		return Outcome{Status: Failed}
	}
	req.Header.Set("Authorization", "Bot "+t.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.log.Error().Err(err).Msg("discord send failed")
		return Outcome{Status: Failed}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return Outcome{Status: Delivered}
	case http.StatusTooManyRequests:
		delay := parseRetryAfter(resp.Body)
		t.log.Warn().Dur("retry_after", delay).Msg("discord rate limited")
		return Outcome{Status: RateLimited, RetryAfter: delay}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		t.log.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("discord rejected message")
		return Outcome{Status: Failed}
	}
}

// parseRetryAfter reads the fractional retry_after seconds from a 429 body
// and converts it to a duration with millisecond resolution, rounding up.
// Any parse problem falls back to defaultRetryAfter.
func parseRetryAfter(r io.Reader) time.Duration {
	var body struct {
		RetryAfter *float64 `json:"retry_after"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil || body.RetryAfter == nil || *body.RetryAfter < 0 {
		return defaultRetryAfter
	}
	ms := math.Ceil(*body.RetryAfter * 1000)
	return time.Duration(ms) * time.Millisecond
}
