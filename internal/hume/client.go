// Package hume talks to the Hume text-to-speech API over HTTP and over its
// streaming WebSocket channel.
package hume

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/logger"
)

const (
	DefaultBaseURL   = "https://api.hume.ai"
	DefaultStreamURL = "wss://api.hume.ai/v0/tts/stream/input"
	DefaultFormat    = "mp3"
	DefaultTimeout   = 30 * time.Second

	ttsPath      = "/v0/tts"
	apiKeyHeader = "X-Hume-Api-Key"

	// maxErrorBody caps how much of a rejection body is kept.
	maxErrorBody = 2048
)

// Compile-time interface check.
var _ domain.Synthesizer = (*Client)(nil)

// Option configures the HTTP client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithAudioFormat sets the requested container ("mp3" or "wav").
func WithAudioFormat(format string) Option {
	return func(c *Client) {
		c.format = format
	}
}

// WithHTTPTimeout bounds each request, including reading the body.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying http.Client. Its timeout is kept
// only if set; otherwise DefaultTimeout applies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc.Timeout == 0 {
			hc.Timeout = DefaultTimeout
		}
		c.httpClient = hc
	}
}

// Client synthesizes speech through the HTTP endpoint. A single call with
// several utterances returns one combined clip.
type Client struct {
	baseURL    string
	format     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates an HTTP synthesis client.
func NewClient(log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		format:  DefaultFormat,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Format returns the audio container requested from the endpoint.
func (c *Client) Format() string { return c.format }

// Synthesize posts the utterances and returns the decoded audio. When the
// endpoint says the requested voice does not exist, the call is retried
// once with no voice so the service falls back to its default.
func (c *Client) Synthesize(ctx context.Context, apiKey string, reqs []domain.UtteranceRequest) ([]byte, error) {
	if apiKey == "" {
		return nil, &domain.ConfigurationError{Setting: "api_key", Err: domain.ErrMissingAPIKey}
	}
	if len(reqs) == 0 {
		return nil, domain.ErrNothingToPlay
	}

	audio, err := c.post(ctx, apiKey, reqs)
	if retry, ok := voiceRetry(err, reqs); ok {
		c.log.Warn("voice %q not found, retrying with the default voice", reqs[0].VoiceName)
		return c.post(ctx, apiKey, retry)
	}
	return audio, err
}

func (c *Client) post(ctx context.Context, apiKey string, reqs []domain.UtteranceRequest) ([]byte, error) {
	body, err := json.Marshal(newWireRequest(reqs, c.format))
	if err != nil {
		return nil, fmt.Errorf("hume: encode request: %w", err)
	}

	url := c.baseURL + ttsPath
	c.log.Debug("synthesizing %d utterance(s), %d bytes of json", len(reqs), len(body))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("hume: creating request: %w", err)
	}
	req.Header.Set(apiKeyHeader, apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "moodspeak/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Op: "POST " + ttsPath, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.RemoteRejection{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{Op: "read response", Err: err}
	}

	var msg audioMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &domain.MalformedResponseError{Reason: "response is not json", Err: err}
	}
	encoded := msg.encodedAudio()
	if encoded == "" {
		return nil, &domain.MalformedResponseError{Reason: "no audio field in response"}
	}
	audio, err := decodeAudio(encoded)
	if err != nil {
		return nil, err
	}

	c.log.Debug("got %d bytes of audio in %s", len(audio), time.Since(start).Round(time.Millisecond))
	return audio, nil
}

// voiceRetry returns the requests with voices removed when err is a
// voice-not-found rejection and at least one request named a voice.
func voiceRetry(err error, reqs []domain.UtteranceRequest) ([]domain.UtteranceRequest, bool) {
	var rej *domain.RemoteRejection
	if !errors.As(err, &rej) || !rej.VoiceNotFound() {
		return nil, false
	}
	named := false
	out := make([]domain.UtteranceRequest, len(reqs))
	for i, r := range reqs {
		if r.VoiceName != "" {
			named = true
		}
		r.VoiceName = ""
		r.VoiceProvider = ""
		out[i] = r
	}
	return out, named
}
