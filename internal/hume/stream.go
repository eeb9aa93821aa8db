package hume

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/logger"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultReadTimeout      = 30 * time.Second
	writeTimeout            = 5 * time.Second
)

// Compile-time interface check.
var _ domain.Synthesizer = (*StreamClient)(nil)

// StreamOption configures the streaming client.
type StreamOption func(*StreamClient)

// WithStreamURL points the client at another WebSocket endpoint.
func WithStreamURL(u string) StreamOption {
	return func(s *StreamClient) {
		s.url = u
	}
}

// WithStreamFormat sets the requested container.
func WithStreamFormat(format string) StreamOption {
	return func(s *StreamClient) {
		s.format = format
	}
}

// WithHandshakeTimeout bounds connection setup.
func WithHandshakeTimeout(d time.Duration) StreamOption {
	return func(s *StreamClient) {
		s.handshakeTimeout = d
	}
}

// WithReadTimeout bounds the wait for each message from the server.
func WithReadTimeout(d time.Duration) StreamOption {
	return func(s *StreamClient) {
		s.readTimeout = d
	}
}

// StreamClient synthesizes over the bidirectional streaming channel. One
// connection is opened per call: utterances are sent, the input is
// closed, and audio chunks are collected until the server reports the
// generation complete or closes the socket.
type StreamClient struct {
	url              string
	format           string
	handshakeTimeout time.Duration
	readTimeout      time.Duration
	log              *logger.Logger
}

// NewStreamClient creates a WebSocket synthesis client.
func NewStreamClient(log *logger.Logger, opts ...StreamOption) *StreamClient {
	s := &StreamClient{
		url:              DefaultStreamURL,
		format:           DefaultFormat,
		handshakeTimeout: DefaultHandshakeTimeout,
		readTimeout:      DefaultReadTimeout,
		log:              log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize streams the utterances and returns the concatenated audio,
// retrying once without a voice when the voice is not found.
func (s *StreamClient) Synthesize(ctx context.Context, apiKey string, reqs []domain.UtteranceRequest) ([]byte, error) {
	if apiKey == "" {
		return nil, &domain.ConfigurationError{Setting: "api_key", Err: domain.ErrMissingAPIKey}
	}
	if len(reqs) == 0 {
		return nil, domain.ErrNothingToPlay
	}

	audio, err := s.stream(ctx, apiKey, reqs)
	if retry, ok := voiceRetry(err, reqs); ok {
		s.log.Warn("voice %q not found, retrying stream with the default voice", reqs[0].VoiceName)
		return s.stream(ctx, apiKey, retry)
	}
	return audio, err
}

func (s *StreamClient) endpoint() (string, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return "", &domain.ConfigurationError{Setting: "stream_url", Err: err}
	}
	if u.Scheme == "" {
		u.Scheme = "wss"
	}
	q := u.Query()
	if q.Get("format_type") == "" {
		q.Set("format_type", s.format)
	}
	q.Set("no_binary", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *StreamClient) stream(ctx context.Context, apiKey string, reqs []domain.UtteranceRequest) ([]byte, error) {
	endpoint, err := s.endpoint()
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()[:8]

	header := http.Header{}
	header.Set(apiKeyHeader, apiKey)
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: s.handshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			return nil, &domain.RemoteRejection{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		}
		return nil, &domain.NetworkError{Op: "dial stream", Err: err}
	}
	defer conn.Close()

	// Unblock a pending read as soon as the caller gives up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s.log.Debug("stream %s: connected, sending %d utterance(s)", id, len(reqs))

	send := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(v); err != nil {
			return &domain.NetworkError{Op: "write stream", Err: ctxErrOr(ctx, err)}
		}
		return nil
	}
	for _, r := range reqs {
		if err := send(toWire(r)); err != nil {
			return nil, err
		}
	}
	if err := send(map[string]bool{"flush": true}); err != nil {
		return nil, err
	}
	if err := send(map[string]bool{"close": true}); err != nil {
		return nil, err
	}

	var audio bytes.Buffer
	chunks := 0
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			return nil, &domain.NetworkError{Op: "read stream", Err: ctxErrOr(ctx, err)}
		}

		var msg audioMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Debug("stream %s: skipping non-json frame (%d bytes)", id, len(data))
			continue
		}
		if msg.isError() {
			return nil, &domain.RemoteRejection{Body: msg.errorText()}
		}
		if enc := msg.encodedAudio(); enc != "" {
			chunk, err := decodeAudio(enc)
			if err != nil {
				return nil, err
			}
			audio.Write(chunk)
			chunks++
		}
		if msg.isComplete() {
			break
		}
	}

	if audio.Len() == 0 {
		return nil, &domain.MalformedResponseError{Reason: "stream ended without audio"}
	}
	s.log.Debug("stream %s: %d chunk(s), %d bytes", id, chunks, audio.Len())
	return audio.Bytes(), nil
}

// ctxErrOr prefers the context's error so cancellations and deadlines are
// reported as such instead of as a closed connection.
func ctxErrOr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
