package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hammamikhairi/moodspeak/internal/command"
	"github.com/hammamikhairi/moodspeak/internal/display"
	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/engine"
	"github.com/hammamikhairi/moodspeak/internal/logger"
)

type cliApp struct {
	engine *engine.Engine
	parser domain.IntentParser
	log    *logger.Logger
	ui     *display.UI
}

func (a *cliApp) run(ctx context.Context) {
	uiCh := a.ui.InputChan()
	for {
		var input string
		var ok bool

		select {
		case <-ctx.Done():
			return
		case input, ok = <-uiCh:
			if !ok {
				return
			}
		}

		intent, err := a.parser.Parse(ctx, input)
		if err != nil {
			a.log.Error("parsing input: %v", err)
			continue
		}
		if intent.Type == domain.IntentQuit {
			return
		}
		a.handleIntent(ctx, intent)
	}
}

func (a *cliApp) handleIntent(ctx context.Context, intent *domain.Intent) {
	switch intent.Type {
	case domain.IntentSpeakLine:
		a.report(a.engine.Append(ctx, intent.Payload))
	case domain.IntentPlay:
		a.report(a.engine.PlayAll(ctx))
	case domain.IntentPause:
		a.report(a.engine.Pause())
	case domain.IntentResume:
		a.report(a.engine.Resume(ctx))
	case domain.IntentStop:
		a.engine.Stop()
	case domain.IntentClear:
		a.engine.Clear()
		a.ui.PrintHint("cleared")

	case domain.IntentHistory:
		a.ui.PrintList(a.engine.History(), "history is empty")
	case domain.IntentSpeakHistory:
		if i, ok := a.index(intent.Payload); ok {
			a.report(a.engine.SpeakHistory(ctx, i))
		}
	case domain.IntentForgetHistory:
		a.forget(intent.Payload)

	case domain.IntentShortcuts:
		a.ui.PrintList(a.engine.Shortcuts(), "no saved phrases")
	case domain.IntentSaveShortcut:
		saved, err := a.engine.AddShortcut(ctx, intent.Payload)
		if a.report(err) {
			a.ui.PrintInfo(fmt.Sprintf("saved %q", saved))
		}
	case domain.IntentSpeakShortcut:
		if i, ok := a.index(intent.Payload); ok {
			a.report(a.engine.SpeakShortcut(ctx, i))
		}
	case domain.IntentDeleteShortcut:
		if i, ok := a.index(intent.Payload); ok && a.report(a.engine.DeleteShortcut(i)) {
			a.ui.PrintHint("phrase deleted")
		}

	case domain.IntentSetVoice:
		name, custom := parseVoice(intent.Payload)
		if s, err := a.engine.SetVoice(name, custom); a.report(err) {
			a.ui.PrintInfo("voice: " + s.Voice.String())
		}
	case domain.IntentSetRate:
		a.setNumber(intent.Payload, "rate", a.engine.SetRate, func(s domain.Settings) float64 { return s.Rate })
	case domain.IntentSetPitch:
		a.setNumber(intent.Payload, "pitch", a.engine.SetPitch, func(s domain.Settings) float64 { return s.Pitch })
	case domain.IntentSetMode:
		if s, err := a.engine.SetMode(intent.Payload); a.report(err) {
			a.ui.PrintInfo("speak while typing: " + string(s.SpeakAsYouType))
		}
	case domain.IntentSetKey:
		if a.report(a.engine.SetAPIKey(intent.Payload)) {
			a.ui.PrintInfo("API key saved")
			a.engine.PrefetchShortcuts(ctx)
		}

	case domain.IntentEmotions:
		a.ui.PrintText(command.EmotionTable())
	case domain.IntentStatus:
		a.status()
	case domain.IntentHelp:
		a.ui.PrintText(command.HelpText)
	case domain.IntentUnknown:
		if intent.Payload != "" {
			a.ui.PrintHint(fmt.Sprintf("unknown command %q, try /help", intent.Payload))
		}
	}
}

// report prints err for the user and returns true when there was none.
func (a *cliApp) report(err error) bool {
	if err == nil {
		return true
	}
	var cfgErr *domain.ConfigurationError
	switch {
	case errors.As(err, &cfgErr) && errors.Is(err, domain.ErrMissingAPIKey):
		a.ui.PrintUrgent("No API key. Type /key KEY or set it in the environment.")
	case errors.Is(err, domain.ErrNotPaused), errors.Is(err, domain.ErrNotSpeaking),
		errors.Is(err, domain.ErrEmptyText), errors.Is(err, domain.ErrNothingToPlay):
		a.ui.PrintHint(err.Error())
	default:
		a.ui.PrintUrgent(fmt.Sprintf("Error: %v", err))
	}
	return false
}

// index converts a 1-based list number to a slice index.
func (a *cliApp) index(payload string) (int, bool) {
	i, err := parseIndex(payload)
	if err != nil {
		a.ui.PrintUrgent(err.Error())
		return 0, false
	}
	return i, true
}

func (a *cliApp) forget(payload string) {
	if strings.EqualFold(payload, "all") {
		if a.report(a.engine.ForgetHistory(-1)) {
			a.ui.PrintHint("history cleared")
		}
		return
	}
	if i, ok := a.index(payload); ok && a.report(a.engine.ForgetHistory(i)) {
		a.ui.PrintHint("entry deleted")
	}
}

func (a *cliApp) setNumber(payload, name string, set func(float64) (domain.Settings, error), get func(domain.Settings) float64) {
	v, err := strconv.ParseFloat(payload, 64)
	if err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("%s must be a number, got %q", name, payload))
		return
	}
	s, err := set(v)
	if a.report(err) {
		a.ui.PrintInfo(fmt.Sprintf("%s: %.2f", name, get(s)))
	}
}

func (a *cliApp) status() {
	st := a.engine.Status()
	pb := st.Playback
	a.ui.PrintInfo(fmt.Sprintf("Playback: %s", pb.State))
	if pb.State != domain.StateIdle {
		a.ui.PrintText(fmt.Sprintf("Segment:  %d/%d", pb.Cursor+1, pb.Total))
	}
	a.ui.PrintText(fmt.Sprintf("Voice:    %s", st.Settings.Voice))
	a.ui.PrintText(fmt.Sprintf("Rate:     %.2f  Pitch: %.2f", st.Settings.Rate, st.Settings.Pitch))
	a.ui.PrintText(fmt.Sprintf("Typing:   %s (%s delay)", st.Settings.SpeakAsYouType, st.Settings.Delay()))
	a.ui.PrintText(fmt.Sprintf("Emotion:  %s", command.Label(st.Emotion)))
	a.ui.PrintText(fmt.Sprintf("Buffer:   %d line(s)", st.Lines))
	if !st.HasKey {
		a.ui.PrintUrgent("API key:  missing")
	}
}

// parseIndex turns a 1-based number into a 0-based index.
func parseIndex(payload string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(payload))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("expected a number from the list, got %q", payload)
	}
	return n - 1, nil
}

// parseVoice splits "NAME [custom]".
func parseVoice(payload string) (name string, custom bool) {
	name = strings.TrimSpace(payload)
	if i := strings.LastIndexByte(name, ' '); i >= 0 && strings.EqualFold(name[i+1:], "custom") {
		return strings.TrimSpace(name[:i]), true
	}
	return name, false
}
