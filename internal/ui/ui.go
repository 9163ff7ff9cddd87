package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"codeberg.org/mutker/pipdrain/internal/player"
	"codeberg.org/mutker/pipdrain/internal/sink"
	"codeberg.org/mutker/pipdrain/internal/usage"
)

// Player is the part of the player the display controls.
type Player interface {
	Stats() player.Stats
	IsDraining() bool
	SetDraining(on bool)
}

// CPU provides the CPU label and its history.
type CPU interface {
	Latest() usage.Reading
	Tracker() *usage.Tracker
}

// Extra is an optional card, such as battery or GPU, read on every refresh.
type Extra struct {
	Title string
	Read  func() string
}

// Model shows the colour of the last presented frame next to the CPU label
// and the player's counters.
type Model struct {
	frames <-chan sink.FrameInfo
	player Player
	cpu    CPU
	extras []Extra
	cancel context.CancelFunc

	refresh time.Duration
	started time.Time
	last    sink.FrameInfo
	seen    bool
	width   int
}

// New builds the display. cancel is called when the user quits.
func New(frames <-chan sink.FrameInfo, p Player, cpu CPU, cancel context.CancelFunc, extras ...Extra) *Model {
	return &Model{
		frames:  frames,
		player:  p,
		cpu:     cpu,
		extras:  extras,
		cancel:  cancel,
		refresh: usage.DefaultInterval,
		started: time.Now(),
		width:   80,
	}
}

// Run drives the display until the user quits or ctx is done.
func Run(ctx context.Context, m *Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// Messages
type tickMsg struct{}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *Model) Init() tea.Cmd { return m.tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "d", " ":
			m.player.SetDraining(!m.player.IsDraining())
		}
	case tickMsg:
		m.drainFrames()
		return m, m.tickCmd()
	}
	return m, nil
}

// drainFrames keeps only the newest summary waiting on the channel.
func (m *Model) drainFrames() {
	for {
		select {
		case info, ok := <-m.frames:
			if !ok {
				return
			}
			m.last, m.seen = info, true
		default:
			return
		}
	}
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	sparks      = []rune("▁▂▃▄▅▆▇█")
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

func (m *Model) View() string {
	stats := m.player.Stats()
	reading := m.cpu.Latest()

	state := "draining"
	if !m.player.IsDraining() {
		state = "paused"
	}
	header := titleStyle.Render("PiP battery drain") + "  " +
		subtleStyle.Render(fmt.Sprintf("%s  up %s  [d] toggle drain  [q] quit",
			state, time.Since(m.started).Truncate(time.Second)))

	label := reading.Label()
	if reading.Err != nil {
		label = alertStyle.Render(label)
	}
	tracker := m.cpu.Tracker()
	cpuCard := card("CPU", fmt.Sprintf("%s\n%s\navg %5.1f%%  peak %5.1f%%",
		label,
		sparkline(tracker.Samples(), 24),
		tracker.Average(), tracker.Peak()))

	frameCard := card("Frames", fmt.Sprintf(
		"presented %d\nskipped   %d\nrejected  %d\npts       %s",
		stats.Produced, stats.Skipped, stats.Rejected, stats.LastPTS))

	columns := []string{m.swatch(), cpuCard, frameCard}
	for _, extra := range m.extras {
		columns = append(columns, card(extra.Title, extra.Read()))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, columns...))
}

// swatch paints a block in the colour of the last presented frame.
func (m *Model) swatch() string {
	if !m.seen {
		return card("Frame", subtleStyle.Render("waiting…"))
	}

	block := lipgloss.NewStyle().
		Background(lipgloss.Color(m.last.Color.Hex())).
		Width(16).
		Height(3).
		Render("")

	return card("Frame", block+"\n"+subtleStyle.Render(fmt.Sprintf("%dx%d %s",
		m.last.Width, m.last.Height, m.last.Color.Hex())))
}

// Gauge draws a percentage bar for extra cards.
func Gauge(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int((pct / 100) * float64(width))
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

// sparkline draws the last width samples, scaled to the largest one.
func sparkline(samples []float64, width int) string {
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}
	if len(samples) == 0 {
		return strings.Repeat(" ", width)
	}

	top := 0.0
	for _, s := range samples {
		top = max(top, s)
	}

	var b strings.Builder
	for _, s := range samples {
		idx := 0
		if top > 0 {
			idx = int(s / top * float64(len(sparks)-1))
		}
		b.WriteRune(sparks[idx])
	}
	return b.String()
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	content := titleStr + "\n" + body
	return cardStyle.Render(content)
}
