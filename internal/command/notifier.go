package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/emotion"
	"github.com/hammamikhairi/moodspeak/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*CLINotifier)(nil)

// ANSI escape codes for terminal formatting.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

// PrintFunc is a function used to print formatted output.
// Matches the signature of both fmt.Printf and display.UI.Printf.
type PrintFunc func(format string, a ...interface{})

// CLINotifier writes notifications with ANSI formatting.
type CLINotifier struct {
	log     *logger.Logger
	printFn PrintFunc
}

// NewCLINotifier creates a terminal notifier.
// If printFn is nil, fmt.Printf is used.
func NewCLINotifier(log *logger.Logger, printFn PrintFunc) *CLINotifier {
	if printFn == nil {
		printFn = func(format string, a ...interface{}) {
			fmt.Printf(format+"\n", a...)
		}
	}
	return &CLINotifier{log: log, printFn: printFn}
}

// Notify prints a normal notification.
func (n *CLINotifier) Notify(ctx context.Context, message string) error {
	n.log.Debug("notify: %s", message)
	n.printFn("%s%s%s%s", cyan, bold, message, reset)
	return nil
}

// NotifyUrgent prints an urgent notification in bold red.
func (n *CLINotifier) NotifyUrgent(ctx context.Context, message string) error {
	n.log.Debug("notify-urgent: %s", message)
	n.printFn("%s%s%s%s", red, bold, message, reset)
	return nil
}

// EventReporter turns playback events into notifications: each segment
// as it starts, offline fallbacks as warnings, and the end of a sequence.
type EventReporter struct {
	n   domain.Notifier
	log *logger.Logger
}

// NewEventReporter creates a reporter that writes to n.
func NewEventReporter(n domain.Notifier, log *logger.Logger) *EventReporter {
	return &EventReporter{n: n, log: log}
}

// Observe is a playback.Observer.
func (r *EventReporter) Observe(ev domain.PlaybackEvent) {
	ctx := context.Background()
	var err error
	switch ev.Type {
	case domain.EventSegmentStarted:
		err = r.n.Notify(ctx, fmt.Sprintf("▶ %d/%d %s %s", ev.Index+1, ev.Total, Label(ev.Segment.Emotion), ev.Segment.Text))
	case domain.EventSegmentFinished:
		if ev.Source == domain.SourceFallback {
			err = r.n.NotifyUrgent(ctx, fmt.Sprintf("segment %d/%d spoken with the offline voice: %v", ev.Index+1, ev.Total, ev.Err))
		}
	case domain.EventSequenceFinished:
		err = r.n.Notify(ctx, "■ done")
	case domain.EventSequencePaused:
		err = r.n.Notify(ctx, fmt.Sprintf("‖ paused before segment %d/%d", ev.Index+1, ev.Total))
	case domain.EventSequenceStopped:
		err = r.n.Notify(ctx, "■ stopped")
	}
	if err != nil {
		r.log.Warn("event reporter: %v", err)
	}
}

// Label renders a tag as its first emoji followed by the tag name.
func Label(tag domain.EmotionTag) string {
	if e := emotion.EmojiFor(tag); len(e) > 0 {
		return e[0] + " " + string(tag)
	}
	return "[" + string(tag) + "]"
}

// EmotionTable lists every tag with its emoji and preset, one per line.
func EmotionTable() string {
	var b strings.Builder
	for _, tag := range emotion.Tags() {
		p := emotion.Preset(tag)
		fmt.Fprintf(&b, "%s%-20s%s %-10s speed %.2f", bold, "["+string(tag)+"]", reset,
			strings.Join(emotion.EmojiFor(tag), " "), p.Speed)
		if p.TrailingSilence != nil {
			fmt.Fprintf(&b, ", pause %.2fs", *p.TrailingSilence)
		}
		fmt.Fprintf(&b, "\n    %s%s%s\n", dim, p.Description, reset)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Warn formats a non-fatal problem for the user.
func Warn(msg string) string {
	return yellow + msg + reset
}
