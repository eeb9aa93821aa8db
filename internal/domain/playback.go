package domain

// PlaybackState is the sequencer's lifecycle.
type PlaybackState int

const (
	StateIdle PlaybackState = iota
	StateSpeaking
	StatePaused
)

// String returns a human-readable state.
func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// SegmentSource says which path produced a segment's audio.
type SegmentSource int

const (
	SourceRemote SegmentSource = iota
	SourceFallback
)

func (s SegmentSource) String() string {
	if s == SourceFallback {
		return "fallback"
	}
	return "remote"
}

// PlaybackEventType classifies sequencer events.
type PlaybackEventType int

const (
	EventSegmentStarted PlaybackEventType = iota
	EventSegmentFinished
	EventSequenceFinished
	EventSequencePaused
	EventSequenceStopped
)

func (t PlaybackEventType) String() string {
	switch t {
	case EventSegmentStarted:
		return "segment_started"
	case EventSegmentFinished:
		return "segment_finished"
	case EventSequenceFinished:
		return "sequence_finished"
	case EventSequencePaused:
		return "sequence_paused"
	case EventSequenceStopped:
		return "sequence_stopped"
	default:
		return "unknown"
	}
}

// PlaybackEvent reports progress of one sequence. Index and Segment are
// set for segment events; Err carries the failure that sent a segment to
// the fallback speaker.
type PlaybackEvent struct {
	Type    PlaybackEventType
	RunID   string
	Index   int
	Total   int
	Segment Segment
	Source  SegmentSource
	Err     error
}

// PlaybackStatus is a point-in-time view of the sequencer.
type PlaybackStatus struct {
	State  PlaybackState
	Cursor int
	Total  int
	RunID  string
}
