package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors used across layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrEmptyText     = errors.New("nothing to speak")
	ErrNothingToPlay = errors.New("no segments to play")
	ErrNotPaused     = errors.New("playback is not paused")
	ErrNotSpeaking   = errors.New("nothing is playing")
	ErrMissingAPIKey = errors.New("hume api key is not set")
)

// ConfigurationError reports a setting that prevents the pipeline from
// starting at all, most often a missing API credential. It is raised before
// any network traffic.
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %v", e.Setting, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NetworkError wraps a transport failure talking to the synthesis endpoint.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a bounded wait running out.
func (e *NetworkError) Timeout() bool {
	var t interface{ Timeout() bool }
	if errors.As(e.Err, &t) && t.Timeout() {
		return true
	}
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// RemoteRejection is a non-success status from the synthesis endpoint.
// StatusCode is zero for rejections delivered as a stream error frame.
type RemoteRejection struct {
	StatusCode int
	Body       string
}

func (e *RemoteRejection) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("remote rejected request: %s", e.Body)
	}
	return fmt.Sprintf("remote rejected request (%d): %s", e.StatusCode, e.Body)
}

// VoiceNotFound reports whether the rejection says the named voice does not
// exist. This is the one rejection worth retrying without a voice.
func (e *RemoteRejection) VoiceNotFound() bool {
	body := strings.ToLower(e.Body)
	if !strings.Contains(body, "voice") {
		return false
	}
	return e.StatusCode == 404 ||
		strings.Contains(body, "not found") ||
		strings.Contains(body, "not_found") ||
		strings.Contains(body, "does not exist")
}

// MalformedResponseError means the endpoint answered successfully but the
// body did not carry usable audio.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response: %s: %v", e.Reason, e.Err)
	}
	return "malformed response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// PlaybackError is a local decoding or output failure. Tried lists the
// container hypotheses attempted before giving up.
type PlaybackError struct {
	Tried []string
	Err   error
}

func (e *PlaybackError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("playback: %v", e.Err)
	}
	return fmt.Sprintf("playback: tried %s: %v", strings.Join(e.Tried, ", "), e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

// IsSegmentFailure reports whether err should degrade a single segment to
// the fallback speaker instead of aborting the sequence.
func IsSegmentFailure(err error) bool {
	var (
		netErr  *NetworkError
		rejErr  *RemoteRejection
		malErr  *MalformedResponseError
		playErr *PlaybackError
	)
	return errors.As(err, &netErr) ||
		errors.As(err, &rejErr) ||
		errors.As(err, &malErr) ||
		errors.As(err, &playErr)
}
