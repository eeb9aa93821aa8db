package hume

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/hammamikhairi/moodspeak/internal/domain"
)

type wireVoice struct {
	Name     string `json:"name"`
	Provider string `json:"provider,omitempty"`
}

type wireUtterance struct {
	Text            string     `json:"text"`
	Description     string     `json:"description,omitempty"`
	Speed           float64    `json:"speed,omitempty"`
	Voice           *wireVoice `json:"voice,omitempty"`
	TrailingSilence *float64   `json:"trailing_silence,omitempty"`
}

type wireFormat struct {
	Type string `json:"type"`
}

type wireRequest struct {
	Utterances     []wireUtterance `json:"utterances"`
	Format         wireFormat      `json:"format"`
	NumGenerations int             `json:"num_generations"`
}

func toWire(r domain.UtteranceRequest) wireUtterance {
	u := wireUtterance{
		Text:            r.Text,
		Description:     r.Description,
		Speed:           r.Speed,
		TrailingSilence: r.TrailingSilence,
	}
	if r.VoiceName != "" {
		u.Voice = &wireVoice{Name: r.VoiceName, Provider: string(r.VoiceProvider)}
	}
	return u
}

func newWireRequest(reqs []domain.UtteranceRequest, format string) wireRequest {
	w := wireRequest{
		Utterances:     make([]wireUtterance, 0, len(reqs)),
		Format:         wireFormat{Type: format},
		NumGenerations: 1,
	}
	for _, r := range reqs {
		w.Utterances = append(w.Utterances, toWire(r))
	}
	return w
}

// audioMessage covers every response shape the endpoint has been seen to
// use: top-level audio, a data field, a snippet, or generations.
type audioMessage struct {
	Type    string `json:"type"`
	Audio   string `json:"audio"`
	Data    string `json:"data"`
	Snippet *struct {
		Audio string `json:"audio"`
	} `json:"snippet"`
	Generations []struct {
		Audio string `json:"audio"`
	} `json:"generations"`
	GenerationComplete bool   `json:"generation_complete"`
	Message            string `json:"message"`
	Error              any    `json:"error"`
}

// encodedAudio returns the first base64 audio field present.
func (m *audioMessage) encodedAudio() string {
	switch {
	case m.Audio != "":
		return m.Audio
	case m.Data != "":
		return m.Data
	case m.Snippet != nil && m.Snippet.Audio != "":
		return m.Snippet.Audio
	case len(m.Generations) > 0 && m.Generations[0].Audio != "":
		return m.Generations[0].Audio
	}
	return ""
}

func (m *audioMessage) isError() bool {
	return m.Type == "error" || m.Error != nil
}

func (m *audioMessage) errorText() string {
	if m.Message != "" {
		return m.Message
	}
	switch e := m.Error.(type) {
	case string:
		return e
	case nil:
		return "unknown stream error"
	default:
		b, _ := json.Marshal(e)
		return string(b)
	}
}

func (m *audioMessage) isComplete() bool {
	return m.Type == "generation_complete" || m.GenerationComplete
}

// decodeAudio decodes base64 audio, accepting padded and unpadded input.
func decodeAudio(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &domain.MalformedResponseError{Reason: "empty audio field"}
	}
	audio, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		var rawErr error
		audio, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if rawErr != nil {
			return nil, &domain.MalformedResponseError{Reason: "invalid base64 audio", Err: err}
		}
	}
	if len(audio) == 0 {
		return nil, &domain.MalformedResponseError{Reason: "empty audio payload"}
	}
	return audio, nil
}
