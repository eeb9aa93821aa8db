package hume

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/logger"
)

var quiet = logger.New(logger.LevelOff, nil)

func sampleRequests() []domain.UtteranceRequest {
	ts := 0.4
	return []domain.UtteranceRequest{
		{Text: "hello", VoiceName: "Ava Song", VoiceProvider: domain.ProviderHumeAI, Description: "warm", Speed: 1.1},
		{Text: "bye", VoiceName: "Ava Song", VoiceProvider: domain.ProviderHumeAI, Description: "sad", Speed: 0.85, TrailingSilence: &ts},
	}
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func TestSynthesizeSendsBatchAndDecodesGenerations(t *testing.T) {
	var got wireRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ttsPath, r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get(apiKeyHeader))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"generations":[{"audio":"` + b64("MP3DATA") + `"}]}`))
	}))
	defer srv.Close()

	c := NewClient(quiet, WithBaseURL(srv.URL))
	audio, err := c.Synthesize(context.Background(), "secret", sampleRequests())
	require.NoError(t, err)
	assert.Equal(t, []byte("MP3DATA"), audio)

	require.Len(t, got.Utterances, 2)
	assert.Equal(t, "mp3", got.Format.Type)
	assert.Equal(t, 1, got.NumGenerations)
	assert.Equal(t, "HUME_AI", got.Utterances[0].Voice.Provider)
	assert.Nil(t, got.Utterances[0].TrailingSilence)
	require.NotNil(t, got.Utterances[1].TrailingSilence)
	assert.InDelta(t, 0.4, *got.Utterances[1].TrailingSilence, 1e-9)
}

func TestSynthesizeOmitsProviderForCustomVoice(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"audio":"` + b64("x") + `"}`))
	}))
	defer srv.Close()

	reqs := []domain.UtteranceRequest{{Text: "hi", VoiceName: "Mine", Speed: 1}}
	_, err := NewClient(quiet, WithBaseURL(srv.URL)).Synthesize(context.Background(), "k", reqs)
	require.NoError(t, err)

	voice := raw["utterances"].([]any)[0].(map[string]any)["voice"].(map[string]any)
	assert.Equal(t, "Mine", voice["name"])
	assert.NotContains(t, voice, "provider")
}

func TestSynthesizeResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"generations", `{"generations":[{"audio":"` + b64("A") + `"}]}`},
		{"top level", `{"audio":"` + b64("A") + `"}`},
		{"data", `{"data":"` + b64("A") + `"}`},
		{"snippet", `{"snippet":{"audio":"` + b64("A") + `"}}`},
		{"unpadded", `{"audio":"` + base64.RawStdEncoding.EncodeToString([]byte("A")) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			audio, err := NewClient(quiet, WithBaseURL(srv.URL)).Synthesize(context.Background(), "k", sampleRequests())
			require.NoError(t, err)
			assert.Equal(t, []byte("A"), audio)
		})
	}
}

func TestSynthesizeMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"no audio field", `{"generations":[]}`},
		{"empty audio", `{"audio":""}`},
		{"bad base64", `{"audio":"***not base64***"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(quiet, WithBaseURL(srv.URL)).Synthesize(context.Background(), "k", sampleRequests())
			var mal *domain.MalformedResponseError
			assert.ErrorAs(t, err, &mal)
			assert.True(t, domain.IsSegmentFailure(err))
		})
	}
}

func TestSynthesizeRejection(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(quiet, WithBaseURL(srv.URL)).Synthesize(context.Background(), "bad", sampleRequests())
	var rej *domain.RemoteRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, http.StatusUnauthorized, rej.StatusCode)
	assert.Contains(t, rej.Body, "invalid api key")
	assert.False(t, rej.VoiceNotFound())
	assert.Equal(t, int32(1), calls.Load(), "non-voice rejections are not retried")
}

func TestSynthesizeRetriesWithoutVoiceWhenNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var req wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if n == 1 {
			assert.NotNil(t, req.Utterances[0].Voice)
			http.Error(w, `{"message":"Voice not found: Ghost"}`, http.StatusNotFound)
			return
		}
		for _, u := range req.Utterances {
			assert.Nil(t, u.Voice)
		}
		_, _ = w.Write([]byte(`{"audio":"` + b64("default voice") + `"}`))
	}))
	defer srv.Close()

	reqs := sampleRequests()
	reqs[0].VoiceName, reqs[1].VoiceName = "Ghost", "Ghost"
	audio, err := NewClient(quiet, WithBaseURL(srv.URL)).Synthesize(context.Background(), "k", reqs)
	require.NoError(t, err)
	assert.Equal(t, []byte("default voice"), audio)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "Ghost", reqs[0].VoiceName, "caller's requests are not mutated")
}

func TestSynthesizeVoiceRetryHappensOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "voice not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(quiet, WithBaseURL(srv.URL)).Synthesize(context.Background(), "k", sampleRequests())
	var rej *domain.RemoteRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSynthesizeMissingKeyMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := NewClient(quiet, WithBaseURL(srv.URL)).Synthesize(context.Background(), "", sampleRequests())
	var cfg *domain.ConfigurationError
	require.ErrorAs(t, err, &cfg)
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)
	assert.False(t, domain.IsSegmentFailure(err))
	assert.Zero(t, calls.Load())
}

func TestSynthesizeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(quiet, WithBaseURL(srv.URL), WithHTTPTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := c.Synthesize(context.Background(), "k", sampleRequests())

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSynthesizeCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The server only notices a dropped client once the body is read.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := NewClient(quiet, WithBaseURL(srv.URL)).Synthesize(ctx, "k", sampleRequests())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
