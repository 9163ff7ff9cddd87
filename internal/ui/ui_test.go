package ui

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/pipdrain/internal/media"
	"codeberg.org/mutker/pipdrain/internal/player"
	"codeberg.org/mutker/pipdrain/internal/sink"
	"codeberg.org/mutker/pipdrain/internal/usage"
)

type fakePlayer struct {
	stats    player.Stats
	draining bool
}

func (p *fakePlayer) Stats() player.Stats { return p.stats }
func (p *fakePlayer) IsDraining() bool    { return p.draining }
func (p *fakePlayer) SetDraining(on bool) { p.draining = on }

type fakeCPU struct {
	reading usage.Reading
	tracker *usage.Tracker
}

func (c *fakeCPU) Latest() usage.Reading   { return c.reading }
func (c *fakeCPU) Tracker() *usage.Tracker { return c.tracker }

func newModel(frames chan sink.FrameInfo) (*Model, *fakePlayer, *fakeCPU, *bool) {
	p := &fakePlayer{draining: true}
	cpu := &fakeCPU{tracker: usage.NewTracker(10)}
	cancelled := false
	m := New(frames, p, cpu, func() { cancelled = true },
		Extra{Title: "Battery", Read: func() string { return Gauge(80, 10) }})
	return m, p, cpu, &cancelled
}

func TestUpdateKeepsNewestFrame(t *testing.T) {
	frames := make(chan sink.FrameInfo, 4)
	m, _, _, _ := newModel(frames)

	frames <- sink.FrameInfo{PTS: media.NewTime(1, 30), Width: 160, Height: 90, Color: colorful.Color{R: 1}}
	frames <- sink.FrameInfo{PTS: media.NewTime(2, 30), Width: 160, Height: 90, Color: colorful.Color{G: 1}}

	_, cmd := m.Update(tickMsg{})
	require.NotNil(t, cmd, "tick must schedule the next refresh")
	assert.True(t, m.seen)
	assert.Equal(t, media.NewTime(2, 30), m.last.PTS)
	assert.Contains(t, m.View(), "#00ff00")
}

func TestUpdateKeys(t *testing.T) {
	m, p, _, cancelled := newModel(make(chan sink.FrameInfo))

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	assert.False(t, p.draining)
	assert.Contains(t, m.View(), "paused")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	assert.True(t, p.draining)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, *cancelled)
}

func TestViewShowsPlaceholderOnFailure(t *testing.T) {
	m, p, cpu, _ := newModel(make(chan sink.FrameInfo))
	p.stats = player.Stats{Produced: 42, Skipped: 1, LastPTS: media.NewTime(43, 30)}

	cpu.reading = usage.Reading{Err: fmt.Errorf("no threads")}
	view := m.View()
	assert.Contains(t, view, usage.Placeholder)
	assert.Contains(t, view, "presented 42")
	assert.Contains(t, view, "43/30")
	assert.Contains(t, view, "waiting")
	assert.Contains(t, view, "Battery")

	cpu.reading = usage.Reading{Percent: 37.25}
	cpu.tracker.Record(37.25, nil)
	view = m.View()
	assert.Contains(t, view, "37.2%")
	assert.NotContains(t, view, usage.Placeholder)
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "    ", sparkline(nil, 4))
	assert.Equal(t, "▁█", sparkline([]float64{0, 10}, 4))
	assert.Equal(t, 3, len([]rune(sparkline([]float64{1, 2, 3, 4, 5}, 3))))
}

func TestGauge(t *testing.T) {
	bar := Gauge(50, 10)
	assert.Equal(t, 5, strings.Count(bar, "█"))
	assert.Contains(t, bar, " 50.0%")
	assert.Equal(t, 10, strings.Count(Gauge(150, 10), "█"))
}
