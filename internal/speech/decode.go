package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/hammamikhairi/moodspeak/internal/domain"
)

// PCM is interleaved signed 16-bit little-endian audio.
type PCM struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// Duration returns how long the PCM plays.
func (p PCM) Duration() float64 {
	frame := p.Channels * 2
	if frame == 0 || p.SampleRate == 0 {
		return 0
	}
	return float64(len(p.Data)/frame) / float64(p.SampleRate)
}

type decoderFunc func([]byte) (PCM, error)

var decoders = map[string]decoderFunc{
	MIMEMPEG: decodeMP3,
	MIMEWAV:  decodeWAV,
}

// hypotheses orders the containers to try. A RIFF header puts WAV first;
// otherwise the requested format leads.
func hypotheses(audio []byte, requested string) []string {
	if len(audio) >= 12 && string(audio[0:4]) == "RIFF" && string(audio[8:12]) == "WAVE" {
		return []string{MIMEWAV, MIMEMPEG}
	}
	if requested == "wav" || requested == MIMEWAV {
		return []string{MIMEWAV, MIMEMPEG}
	}
	return []string{MIMEMPEG, MIMEWAV}
}

// Decode tries each container hypothesis in turn and converts the first
// that decodes to the target rate and channel count. When none works it
// returns a PlaybackError listing what was tried.
func Decode(audio []byte, requested string, rate, channels int) (PCM, error) {
	if len(audio) == 0 {
		return PCM{}, &domain.PlaybackError{Err: errors.New("empty clip")}
	}

	var (
		tried []string
		errs  []error
	)
	for _, mime := range hypotheses(audio, requested) {
		tried = append(tried, mime)
		pcm, err := decoders[mime](audio)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", mime, err))
			continue
		}
		return convert(pcm, rate, channels), nil
	}
	return PCM{}, &domain.PlaybackError{Tried: tried, Err: errors.Join(errs...)}
}

func decodeMP3(audio []byte) (PCM, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		return PCM{}, err
	}
	data, err := io.ReadAll(d)
	if err != nil && len(data) == 0 {
		return PCM{}, err
	}
	if len(data) == 0 {
		return PCM{}, errors.New("no frames decoded")
	}
	// go-mp3 always produces 16-bit stereo.
	return PCM{Data: data, SampleRate: d.SampleRate(), Channels: 2}, nil
}

// decodeWAV walks the RIFF chunks for fmt and data. Only 16-bit PCM is
// accepted.
func decodeWAV(wav []byte) (PCM, error) {
	if len(wav) < 44 {
		return PCM{}, errors.New("wav data too short")
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return PCM{}, errors.New("not a valid WAV file")
	}

	var (
		out    PCM
		gotFmt bool
	)
	pos := 12
	for pos+8 <= len(wav) {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		start := pos + 8

		switch chunkID {
		case "fmt ":
			if start+16 > len(wav) {
				return PCM{}, errors.New("truncated fmt chunk")
			}
			format := binary.LittleEndian.Uint16(wav[start : start+2])
			out.Channels = int(binary.LittleEndian.Uint16(wav[start+2 : start+4]))
			out.SampleRate = int(binary.LittleEndian.Uint32(wav[start+4 : start+8]))
			bits := binary.LittleEndian.Uint16(wav[start+14 : start+16])
			// 1 = PCM, 0xFFFE = extensible (PCM subformat in practice).
			if (format != 1 && format != 0xFFFE) || bits != 16 {
				return PCM{}, fmt.Errorf("unsupported wav encoding (format=%d, bits=%d)", format, bits)
			}
			if out.Channels < 1 || out.SampleRate < 1 {
				return PCM{}, errors.New("invalid wav fmt chunk")
			}
			gotFmt = true
		case "data":
			if !gotFmt {
				return PCM{}, errors.New("data chunk before fmt chunk")
			}
			end := start + chunkSize
			if end > len(wav) || chunkSize == 0 {
				// Streamed WAVs often carry a placeholder size.
				end = len(wav)
			}
			out.Data = wav[start:end]
			return out, nil
		}

		pos = start + chunkSize
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
	}
	return PCM{}, errors.New("data chunk not found in WAV")
}

// convert maps channels and resamples with linear interpolation.
func convert(in PCM, rate, channels int) PCM {
	if rate <= 0 {
		rate = in.SampleRate
	}
	if channels <= 0 {
		channels = in.Channels
	}
	frames := readFrames(in)
	frames = mapChannels(frames, channels)
	if in.SampleRate != rate {
		frames = resample(frames, in.SampleRate, rate)
	}
	return PCM{Data: writeFrames(frames), SampleRate: rate, Channels: channels}
}

func readFrames(p PCM) [][]int16 {
	frameSize := p.Channels * 2
	n := len(p.Data) / frameSize
	frames := make([][]int16, n)
	for i := 0; i < n; i++ {
		f := make([]int16, p.Channels)
		for c := 0; c < p.Channels; c++ {
			off := i*frameSize + c*2
			f[c] = int16(binary.LittleEndian.Uint16(p.Data[off : off+2]))
		}
		frames[i] = f
	}
	return frames
}

func writeFrames(frames [][]int16) []byte {
	if len(frames) == 0 {
		return nil
	}
	ch := len(frames[0])
	out := make([]byte, len(frames)*ch*2)
	for i, f := range frames {
		for c, s := range f {
			binary.LittleEndian.PutUint16(out[(i*ch+c)*2:], uint16(s))
		}
	}
	return out
}

func mapChannels(frames [][]int16, channels int) [][]int16 {
	if len(frames) == 0 || len(frames[0]) == channels {
		return frames
	}
	out := make([][]int16, len(frames))
	for i, f := range frames {
		var sum int
		for _, s := range f {
			sum += int(s)
		}
		mono := int16(sum / len(f))
		g := make([]int16, channels)
		for c := range g {
			if len(f) == 1 || channels == 1 {
				g[c] = mono
			} else if c < len(f) {
				g[c] = f[c]
			} else {
				g[c] = mono
			}
		}
		out[i] = g
	}
	return out
}

func resample(frames [][]int16, from, to int) [][]int16 {
	if len(frames) == 0 || from <= 0 || to <= 0 {
		return frames
	}
	n := int(int64(len(frames)) * int64(to) / int64(from))
	if n == 0 {
		return nil
	}
	ch := len(frames[0])
	out := make([][]int16, n)
	ratio := float64(from) / float64(to)
	for i := 0; i < n; i++ {
		pos := float64(i) * ratio
		j := int(pos)
		frac := pos - float64(j)
		a := frames[j]
		b := a
		if j+1 < len(frames) {
			b = frames[j+1]
		}
		g := make([]int16, ch)
		for c := 0; c < ch; c++ {
			g[c] = int16(float64(a[c])*(1-frac) + float64(b[c])*frac)
		}
		out[i] = g
	}
	return out
}
