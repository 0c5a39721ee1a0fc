// Package tui previews the portfolio page in the terminal: the greeting
// screen first, then a scrollable page whose about section counts the age up
// once half of it is on screen.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Zachkp/zach-portfolio/internal/clock"
	"github.com/Zachkp/zach-portfolio/internal/content"
	"github.com/Zachkp/zach-portfolio/internal/session"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	// heroPadding pushes the about section below the first screen.
	heroPadding = 18
)

// Run launches the preview and blocks until the user quits or ctx ends.
func Run(ctx context.Context, c content.Content, opts session.Options) error {
	loop := clock.NewLoop()
	go func() { _ = loop.Run(ctx) }()
	defer loop.Close()

	s, err := session.New("preview", loop, opts)
	if err != nil {
		return err
	}
	var events <-chan session.Event
	if !loop.Do(func() { events, err = s.Start() }) {
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	defer closeSession(loop, s)

	report := func(region string, ratio float64) {
		loop.Post(func() { s.ReportVisibility(region, ratio) })
	}

	program := tea.NewProgram(newModel(c, opts.Region, events, report), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// closeSession closes s on its loop, or directly once the loop has stopped.
func closeSession(loop *clock.Loop, s *session.Session) {
	if !loop.Do(s.Close) {
		<-loop.Done()
		s.Close()
	}
}

type eventMsg session.Event

type streamClosedMsg struct{}

func waitForEvent(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

type model struct {
	content content.Content
	region  string
	events  <-chan session.Event
	report  func(region string, ratio float64)
	styles  styles
	keys    keyMap

	width  int
	height int
	offset int

	greetingText string
	greetingLang string
	fading       bool
	ready        bool
	age          float64
	lastRatio    float64
}

func newModel(c content.Content, region string, events <-chan session.Event, report func(string, float64)) model {
	m := model{
		content:   c,
		region:    region,
		events:    events,
		report:    report,
		styles:    defaultStyles(),
		keys:      defaultKeyMap(),
		width:     defaultWidth,
		height:    defaultHeight,
		lastRatio: -1,
	}
	if len(c.Greetings) > 0 {
		m.greetingText = c.Greetings[0].Text
		m.greetingLang = c.Greetings[0].Language
	}
	return m
}

func (m model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case !m.ready:
		case key.Matches(msg, m.keys.Up):
			m.offset--
		case key.Matches(msg, m.keys.Down):
			m.offset++
		case key.Matches(msg, m.keys.PageUp):
			m.offset -= m.pageHeight()
		case key.Matches(msg, m.keys.PageDown):
			m.offset += m.pageHeight()
		}
		m.clampOffset()
		m.reportVisibility()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampOffset()
		m.reportVisibility()
	case eventMsg:
		m.apply(session.Event(msg))
		return m, waitForEvent(m.events)
	case streamClosedMsg:
		return m, nil
	}
	return m, nil
}

func (m *model) apply(ev session.Event) {
	switch ev.Kind {
	case session.EventGreeting:
		m.greetingText = ev.Text
		m.greetingLang = ev.Language
	case session.EventPreloaderHidden:
		m.fading = true
	case session.EventPreloaderDone:
		m.ready = true
		m.reportVisibility()
	case session.EventAge:
		m.age = ev.Value
	}
}

// reportVisibility sends the about section's visible fraction whenever it changes.
func (m *model) reportVisibility() {
	if !m.ready || m.report == nil {
		return
	}
	start, length := m.aboutSpan()
	ratio := visibleRatio(start, length, m.offset, m.pageHeight())
	if ratio == m.lastRatio {
		return
	}
	m.lastRatio = ratio
	m.report(m.region, ratio)
}

func (m model) View() string {
	if !m.ready {
		return m.preloaderView()
	}
	lines, _, _ := m.pageLines()
	end := min(m.offset+m.pageHeight(), len(lines))
	visible := lines[m.offset:end]
	footer := m.styles.Muted.Render("↑/↓ scroll • pgup/pgdn page • q quit")
	return strings.Join(visible, "\n") + "\n" + footer + "\n"
}

func (m model) preloaderView() string {
	greeting := m.styles.Greeting.Render(m.greetingText)
	lang := m.styles.Language.Render(fmt.Sprintf("(%s)", m.greetingLang))
	if m.fading {
		greeting = m.styles.Fading.Render(m.greetingText)
		lang = m.styles.Fading.Render(fmt.Sprintf("(%s)", m.greetingLang))
	}
	block := lipgloss.JoinVertical(lipgloss.Center, greeting, lang)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, block)
}

// pageLines renders the whole page and returns where the about section sits.
func (m model) pageLines() ([]string, int, int) {
	wrap := lipgloss.NewStyle().Width(max(m.width-4, 20))
	var lines []string
	add := func(s string) {
		lines = append(lines, strings.Split(s, "\n")...)
	}

	add(m.styles.Title.Render("Hi, I'm " + m.content.Name))
	add(m.styles.Muted.Render(m.content.Headline))
	for i := 0; i < heroPadding; i++ {
		add("")
	}

	aboutStart := len(lines)
	add(m.styles.Heading.Render("About me"))
	add(m.styles.Accent.Render(strconv.FormatFloat(m.age, 'f', -1, 64)) + m.styles.Text.Render(" years old."))
	add(wrap.Render(normalize(m.content.AboutMe)))
	aboutLen := len(lines) - aboutStart
	add("")

	add(m.styles.Heading.Render("Timeline"))
	for _, j := range append(append([]content.Job{}, m.content.Timeline...), m.content.Education...) {
		add(m.styles.Accent.Render(j.Title) + m.styles.Text.Render(" @ "+j.Company))
		add(m.styles.Muted.Render(j.StartDate + " - " + j.EndDate))
		for _, b := range j.Bullets {
			add(wrap.Render("• " + b))
		}
		add("")
	}

	add(m.styles.Heading.Render("Projects"))
	for _, p := range m.content.Projects {
		add(m.styles.Accent.Render(p.Title))
		add(wrap.Render(normalize(p.Description)))
		if len(p.Tech) > 0 {
			add(m.styles.Muted.Render(strings.Join(p.Tech, " · ")))
		}
		add("")
	}

	add(m.styles.Heading.Render("Certifications"))
	for _, cert := range m.content.Certifications {
		add(m.styles.Accent.Render(cert.Name) + m.styles.Text.Render(" ("+cert.Issuer+", "+cert.Date+")"))
		for _, d := range cert.Details {
			add(wrap.Render("• " + d))
		}
	}
	add("")

	add(m.styles.Heading.Render("Tech Stack"))
	for _, g := range m.content.TechStack {
		add(wrap.Render(g.Name + ": " + strings.Join(g.Items, ", ")))
	}
	add("")
	add(m.styles.Heading.Render("Contact"))
	add(m.styles.Text.Render("mailto:" + m.content.Email))
	return lines, aboutStart, aboutLen
}

func (m model) aboutSpan() (int, int) {
	_, start, length := m.pageLines()
	return start, length
}

func (m model) pageHeight() int {
	// One line for the footer.
	return max(m.height-1, 1)
}

func (m *model) clampOffset() {
	lines, _, _ := m.pageLines()
	maxOffset := max(len(lines)-m.pageHeight(), 0)
	m.offset = min(max(m.offset, 0), maxOffset)
}

// visibleRatio is the fraction of the span [start, start+length) inside the
// window [offset, offset+height).
func visibleRatio(start, length, offset, height int) float64 {
	if length <= 0 || height <= 0 {
		return 0
	}
	top := max(start, offset)
	bottom := min(start+length, offset+height)
	if bottom <= top {
		return 0
	}
	return float64(bottom-top) / float64(length)
}

// normalize collapses the indentation of multi-line content strings.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
