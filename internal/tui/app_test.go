package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/zach-portfolio/internal/clock"
	"github.com/Zachkp/zach-portfolio/internal/content"
	"github.com/Zachkp/zach-portfolio/internal/session"
)

type reportCall struct {
	region string
	ratio  float64
}

func newTestModel(calls *[]reportCall) model {
	events := make(chan session.Event)
	return newModel(content.Default(), "about", events, func(region string, ratio float64) {
		*calls = append(*calls, reportCall{region, ratio})
	})
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out
}

func TestVisibleRatio(t *testing.T) {
	for _, tc := range []struct {
		name                          string
		start, length, offset, height int
		want                          float64
	}{
		{"below window", 30, 10, 0, 20, 0},
		{"half in", 15, 10, 0, 20, 0.5},
		{"fully in", 5, 10, 0, 20, 1},
		{"scrolled past", 5, 10, 20, 20, 0},
		{"taller than window", 0, 40, 10, 20, 0.5},
		{"empty span", 5, 0, 0, 20, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, visibleRatio(tc.start, tc.length, tc.offset, tc.height))
		})
	}
}

func TestPreloaderView(t *testing.T) {
	var calls []reportCall
	m := newTestModel(&calls)
	assert.Contains(t, m.View(), "Hello")

	m = update(t, m, eventMsg{Kind: session.EventGreeting, Index: 1, Text: "Hola", Language: "Spanish"})
	view := m.View()
	assert.Contains(t, view, "Hola")
	assert.Contains(t, view, "(Spanish)")
	assert.Empty(t, calls)
}

func TestScrollingReportsVisibility(t *testing.T) {
	var calls []reportCall
	m := newTestModel(&calls)
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 21})
	assert.Empty(t, calls, "nothing is reported while the greeting screen is up")

	m = update(t, m, eventMsg{Kind: session.EventPreloaderHidden})
	m = update(t, m, eventMsg{Kind: session.EventPreloaderDone})
	require.Len(t, calls, 1)
	assert.Equal(t, "about", calls[0].region)
	assert.Zero(t, calls[0].ratio)

	best := 0.0
	for i := 0; i < 30; i++ {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
		best = max(best, calls[len(calls)-1].ratio)
	}
	assert.Equal(t, 1.0, best)

	m = update(t, m, eventMsg{Kind: session.EventAge, Value: 26})
	assert.Equal(t, 26.0, m.age)

	// Scroll back up until the about section is on screen again.
	start, _ := m.aboutSpan()
	for m.offset > start {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	}
	assert.Contains(t, m.View(), "26")
	assert.Contains(t, m.View(), "About me")
}

func TestScrollIgnoredBeforeReady(t *testing.T) {
	var calls []reportCall
	m := newTestModel(&calls)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Zero(t, m.offset)
}

func TestReportOnlyOnChange(t *testing.T) {
	var calls []reportCall
	m := newTestModel(&calls)
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 21})
	m = update(t, m, eventMsg{Kind: session.EventPreloaderDone})
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 21})
	assert.Len(t, calls, 1)
}

func TestQuit(t *testing.T) {
	var calls []reportCall
	m := newTestModel(&calls)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestPageShowsEverySection(t *testing.T) {
	var calls []reportCall
	m := newTestModel(&calls)
	lines, _, _ := m.pageLines()
	page := strings.Join(lines, "\n")
	for _, want := range []string{"Timeline", "Target", "Western Governors University", "Certifications", "Comptia", "Tech Stack", "Gin"} {
		assert.Contains(t, page, want)
	}
}

func TestCloseSessionAfterLoopStopped(t *testing.T) {
	loop := clock.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()

	s, err := session.New("preview", loop, session.DefaultOptions())
	require.NoError(t, err)
	var events <-chan session.Event
	require.True(t, loop.Do(func() { events, err = s.Start() }))
	require.NoError(t, err)

	cancel()
	select {
	case <-loop.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	closeSession(loop, s)
	assert.True(t, s.Closed())
	for range events {
	}
}
