// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] type keeps a playback status bar and an input prompt at the
// bottom of the terminal. All application output is printed above the
// rendered area via Program.Println / Printf so concurrent writes never
// garble the display.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/engine"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	speakingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Italic(true)

	missingKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// BannerStyle is the muted slate used for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5"))

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a1a1aa"))
)

const prompt = "moodspeak> "

// StatusSource is polled for the status bar.
type StatusSource interface {
	Status() engine.Status
}

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may safely
// call [UI.Println], [UI.Printf], and read from [UI.InputChan] at any
// time after [UI.WaitReady] returns.
type UI struct {
	program *tea.Program
	inputCh chan string
	readyCh chan struct{}
	quitCh  chan struct{}
	source  StatusSource
	done    atomic.Bool
}

// NewUI creates the display. Call Run() to start.
func NewUI(source StatusSource) *UI {
	return &UI{
		source:  source,
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// Println prints a line above the prompt. Thread-safe. Falls back to
// fmt.Println when the program is not running.
func (u *UI) Println(a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// Printf prints formatted text above the prompt on its own line.
// Thread-safe.
func (u *UI) Printf(format string, a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Printf(format, a...)
	} else {
		fmt.Printf(format+"\n", a...)
	}
}

// InputChan returns completed user-input lines.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// ── Styled print helpers ─────────────────────────────────────────

// PrintInfo prints an informational line.
func (u *UI) PrintInfo(text string) {
	u.Println(infoStyle.Render("  " + text))
}

// PrintText prints plain listing text, one indented line per line.
func (u *UI) PrintText(text string) {
	for _, l := range strings.Split(text, "\n") {
		u.Println(primaryStyle.Render("  " + l))
	}
}

// PrintHint prints a secondary/dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(secondaryStyle.Render("  " + text))
}

// PrintUrgent prints an error line.
func (u *UI) PrintUrgent(text string) {
	u.Println(urgentOutputStyle.Render("  " + text))
}

// PrintList prints a numbered list starting at 1, or empty when there
// is nothing to list.
func (u *UI) PrintList(items []string, empty string) {
	if len(items) == 0 {
		u.PrintHint(empty)
		return
	}
	for i, it := range items {
		u.Println(secondaryStyle.Render(fmt.Sprintf("  %2d. ", i+1)) + primaryStyle.Render(oneLine(it)))
	}
}

// PrintUserInput echoes the user's typed line into the scrollback.
func (u *UI) PrintUserInput(text string) {
	u.Println(promptStyle.Render("moodspeak") + secondaryStyle.Render("> ") + userInputEchoStyle.Render(text))
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	ti := textinput.New()
	// Plain-text prompt: lipgloss escapes would break the textinput
	// width math.
	ti.Prompt = prompt
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60 // updated on first WindowSizeMsg

	m := model{
		source:  u.source,
		input:   ti,
		inputCh: u.inputCh,
		readyCh: u.readyCh,
		echoFn:  u.PrintUserInput,
	}
	m.refresh()

	u.program = tea.NewProgram(m)
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	source  StatusSource
	input   textinput.Model
	inputCh chan<- string
	readyCh chan struct{}
	echoFn  func(string) // prints user input into scrollback
	status  engine.Status
	width   int
}

type tickMsg time.Time

// refreshInterval keeps the segment counter close to the audio.
const refreshInterval = 200 * time.Millisecond

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) != "" {
				m.inputCh <- v
				// Echo from a Cmd so Println does not deadlock inside Update.
				echoFn := m.echoFn
				return m, func() tea.Msg {
					echoFn(v)
					return nil
				}
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if n := len(prompt); msg.Width > n {
			m.input.Width = msg.Width - n
		}
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tea.Batch(tickCmd(), tea.SetWindowTitle(titleFor(m.status)))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) refresh() {
	if m.source != nil {
		m.status = m.source.Status()
	}
}

func (m model) View() string {
	var b strings.Builder
	if m.source != nil {
		b.WriteString(renderBar(m.status, m.width))
		b.WriteByte('\n')
	}
	// Blank line before prompt for visual separation.
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

func titleFor(st engine.Status) string {
	pb := st.Playback
	if pb.State == domain.StateIdle {
		return "MoodSpeak"
	}
	return fmt.Sprintf("MoodSpeak: %s %d/%d", pb.State, pb.Cursor+1, pb.Total)
}

func renderBar(st engine.Status, width int) string {
	parts := []string{renderState(st.Playback)}
	parts = append(parts,
		labelStyle.Render("voice ")+valueStyle.Render(st.Settings.Voice.String()),
		labelStyle.Render("rate ")+valueStyle.Render(fmt.Sprintf("%.2f", st.Settings.Rate)),
		labelStyle.Render("typing ")+valueStyle.Render(string(st.Settings.SpeakAsYouType)),
		labelStyle.Render("mood ")+valueStyle.Render(string(st.Emotion)),
	)
	if st.Lines > 0 {
		parts = append(parts, labelStyle.Render("lines ")+valueStyle.Render(fmt.Sprint(st.Lines)))
	}
	if !st.HasKey {
		parts = append(parts, missingKeyStyle.Render("no API key (/key)"))
	}

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "
	if width <= 0 {
		width = 80
	}
	return barBg.Width(width).Render(content)
}

func renderState(pb domain.PlaybackStatus) string {
	switch pb.State {
	case domain.StateSpeaking:
		return speakingStyle.Render(fmt.Sprintf("▶ %d/%d", pb.Cursor+1, pb.Total))
	case domain.StatePaused:
		return pausedStyle.Render(fmt.Sprintf("‖ %d/%d", pb.Cursor+1, pb.Total))
	default:
		return idleStyle.Render("idle")
	}
}

// oneLine flattens multi-line entries for list display.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
