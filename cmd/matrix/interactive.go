package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-matrix/colorspace"
	"github.com/wippyai/wasm-matrix/config"
	"github.com/wippyai/wasm-matrix/render"
	"github.com/wippyai/wasm-matrix/serpentine"
	"github.com/wippyai/wasm-matrix/sink"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	minRate = 0.125
	maxRate = 16
)

type keyMap struct {
	Pause    key.Binding
	Step     key.Binding
	Faster   key.Binding
	Slower   key.Binding
	Brighter key.Binding
	Dimmer   key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Step, k.Faster, k.Slower, k.Brighter, k.Dimmer, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Pause:    key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "pause")),
	Step:     key.NewBinding(key.WithKeys("right", "n"), key.WithHelp("→", "step")),
	Faster:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
	Slower:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "slower")),
	Brighter: key.NewBinding(key.WithKeys("]", "up"), key.WithHelp("]", "brighter")),
	Dimmer:   key.NewBinding(key.WithKeys("[", "down"), key.WithHelp("[", "dimmer")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// viewSink keeps the most recent frame for the viewer to draw.
type viewSink struct {
	last  sink.Frame
	valid bool
}

func (s *viewSink) Write(_ context.Context, f sink.Frame) error {
	if !s.valid || len(s.last.Pixels) != len(f.Pixels) {
		s.last = f.Clone()
		s.valid = true
		return nil
	}
	copy(s.last.Pixels, f.Pixels)
	s.last.Number, s.last.Ticks, s.last.Brightness = f.Number, f.Ticks, f.Brightness
	return nil
}

func (s *viewSink) Close() error { return nil }

type frameMsg time.Time

type viewerModel struct {
	ctx        context.Context
	err        error
	loop       *render.Loop
	clock      *render.VirtualClock
	view       *viewSink
	mapper     *serpentine.Mapper
	renderer   *lipgloss.Renderer
	segment    func(ticks uint64) string
	help       help.Model
	logical    []colorspace.RGB
	interval   time.Duration
	brightness uint8
	title      string
}

func newViewerModel(ctx context.Context, cfg *config.Config, src render.Source, log *zap.Logger) (*viewerModel, error) {
	mapper, err := serpentine.NewMapper(src.Grid())
	if err != nil {
		return nil, err
	}
	view := &viewSink{}
	clock := render.NewVirtualClock(render.NewSystemClock())

	rc := render.DefaultConfig()
	rc.Logger = log.Named("render")
	rc.TicksPerSecond = cfg.Timing.TicksPerSecond
	rc.Brightness = cfg.Output.Brightness
	rc.StatsEvery = 0
	loop, err := render.New(src, view, clock, rc)
	if err != nil {
		return nil, err
	}

	m := &viewerModel{
		ctx:        ctx,
		loop:       loop,
		clock:      clock,
		view:       view,
		mapper:     mapper,
		renderer:   lipgloss.DefaultRenderer(),
		help:       help.New(),
		logical:    make([]colorspace.RGB, src.Grid().Pixels()),
		interval:   time.Second / time.Duration(cfg.Timing.TargetFPS),
		brightness: cfg.Output.Brightness,
		title:      "guest " + cfg.ModulePath(),
	}
	if n, ok := src.(*render.NativeSource); ok {
		m.segment = n.Segment
		m.title = "built-in animation"
	}
	return m, nil
}

func (m *viewerModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *viewerModel) Init() tea.Cmd {
	return m.tick()
}

func (m *viewerModel) step() {
	if m.err != nil {
		return
	}
	m.err = m.loop.Step(m.ctx)
}

func (m *viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Pause):
			m.clock.SetPaused(!m.clock.Paused())
		case key.Matches(msg, keys.Step):
			if m.clock.Paused() {
				m.clock.Advance(m.interval)
				m.step()
			}
		case key.Matches(msg, keys.Faster):
			m.clock.SetRate(min(m.clock.Rate()*2, maxRate))
		case key.Matches(msg, keys.Slower):
			m.clock.SetRate(max(m.clock.Rate()/2, minRate))
		case key.Matches(msg, keys.Brighter):
			m.brightness = uint8(min(int(m.brightness)+16, 255))
		case key.Matches(msg, keys.Dimmer):
			m.brightness = uint8(max(int(m.brightness)-16, 0))
		}

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case frameMsg:
		if m.ctx.Err() != nil {
			return m, tea.Quit
		}
		if !m.clock.Paused() {
			m.step()
		}
		if m.err != nil {
			return m, nil
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *viewerModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("LED Matrix"))
	b.WriteString(" ")
	b.WriteString(m.title)
	b.WriteString("\n\n")

	if m.view.valid && m.mapper.Unmap(m.view.last.Pixels, m.logical) == nil {
		b.WriteString(sink.Render(m.renderer, m.mapper.Grid(), m.logical, m.brightness))
		b.WriteString("\n\n")
	}

	s := m.loop.Stats()
	status := fmt.Sprintf("frame %d  ticks %d  %.1f fps  x%g  brightness %d",
		s.Frames, s.Ticks, s.FPS, m.clock.Rate(), m.brightness)
	if m.segment != nil {
		status += "  " + m.segment(s.Ticks)
	}
	b.WriteString(statusStyle.Render(status))
	if m.clock.Paused() {
		b.WriteString(" ")
		b.WriteString(pausedStyle.Render("[paused]"))
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(keys)))
	return b.String()
}

func runInteractive(ctx context.Context, cfg *config.Config, src render.Source, log *zap.Logger) error {
	m, err := newViewerModel(ctx, cfg, src, log)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return m.err
}
