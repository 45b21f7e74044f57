package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/thermalstate/internal/config"
	"github.com/san-kum/thermalstate/internal/experiment"
	"github.com/san-kum/thermalstate/internal/render"
	"github.com/san-kum/thermalstate/internal/thermal"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

type slider struct {
	name     string
	unit     string
	min, max float64
	step     float64
	value    float64
}

func (s *slider) nudge(dir float64) bool {
	v := math.Max(s.min, math.Min(s.max, s.value+dir*s.step))
	if v == s.value {
		return false
	}
	s.value = v
	return true
}

const (
	sliderAmbient = iota
	sliderSetpoint
	sliderStart
)

type view int

const (
	viewState view = iota
	viewDistribution
)

// resultMsg carries a finished run back to the event loop. Results whose
// generation is older than the model's are dropped.
type resultMsg struct {
	gen     int
	snaps   []thermal.Snapshot
	metrics map[string]float64
	err     error
}

type model struct {
	base    *config.Config
	reg     *experiment.Registry
	sliders []slider
	cursor  int
	view    view

	gen     int
	running bool
	snaps   []thermal.Snapshot
	metrics map[string]float64
	err     error

	width  int
	height int
}

func newApp(base *config.Config) model {
	m := model{
		base: base.Clone(),
		reg:  experiment.NewRegistry(),
		sliders: []slider{
			sliderAmbient:  {name: "Ta", unit: "°C", min: -15, max: 15, step: 1, value: base.Ambient},
			sliderSetpoint: {name: "Tset", unit: "°C", min: 10, max: 30, step: 1, value: base.Setpoint},
			sliderStart:    {name: "Tstart", unit: "bin", min: 10, max: 30, step: 1, value: float64(base.Start)},
		},
		running: true,
		width:   80,
		height:  24,
	}
	for i := range m.sliders {
		s := &m.sliders[i]
		s.value = math.Max(s.min, math.Min(s.max, s.value))
	}
	return m
}

func (m model) Init() tea.Cmd {
	return m.rerun()
}

// config returns the base config with the slider values applied.
func (m model) config() *config.Config {
	cfg := m.base.Clone()
	cfg.Ambient = m.sliders[sliderAmbient].value
	cfg.Setpoint = m.sliders[sliderSetpoint].value
	cfg.Start = int(m.sliders[sliderStart].value)
	return cfg
}

func (m model) rerun() tea.Cmd {
	gen, cfg, reg := m.gen, m.config(), m.reg
	return func() tea.Msg {
		exp := experiment.New(cfg, nil)
		if err := exp.Setup(reg); err != nil {
			return resultMsg{gen: gen, err: err}
		}
		traj, err := exp.Run(context.Background())
		if err != nil {
			return resultMsg{gen: gen, err: err}
		}
		return resultMsg{gen: gen, snaps: traj.DisplaySnapshots(), metrics: traj.Metrics}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case resultMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.running = false
		m.err = msg.err
		if msg.err == nil {
			m.snaps = msg.snaps
			m.metrics = msg.metrics
		}
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.sliders)-1 {
			m.cursor++
		}
	case "left", "h":
		return m.adjust(-1)
	case "right", "l":
		return m.adjust(1)
	case "tab", "v":
		if m.view == viewState {
			m.view = viewDistribution
		} else {
			m.view = viewState
		}
	case "r":
		m.gen++
		m.running = true
		return m, m.rerun()
	}
	return m, nil
}

func (m model) adjust(dir float64) (model, tea.Cmd) {
	if !m.sliders[m.cursor].nudge(dir) {
		return m, nil
	}
	m.gen++
	m.running = true
	return m, m.rerun()
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("         " + cyan.Render("t h e r m a l s t a t e") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n\n")

	for i, s := range m.sliders {
		bar := sliderBar(s, 21)
		val := fmt.Sprintf("%5.0f %s", s.value, s.unit)
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-8s", s.name)) + magenta.Render(bar) + " " + white.Render(val) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-8s", s.name)) + dim.Render(bar) + " " + dim.Render(val) + "\n")
		}
	}
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString("      " + red.Render("error: "+m.err.Error()) + "\n")
	case m.running && m.snaps == nil:
		b.WriteString("      " + dim.Render("integrating...") + "\n")
	case m.snaps != nil:
		b.WriteString(m.viewChart())
		b.WriteString(m.viewMetrics())
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select  ←→ adjust  tab chart  r rerun  q quit") + "\n")
	return b.String()
}

func (m model) viewChart() string {
	opts := render.DefaultOptions()
	opts.Width = max(30, m.width-20)
	opts.Height = max(6, m.height-20)

	var chart string
	if m.view == viewState {
		chart = render.StateChart(m.snaps, opts)
	} else {
		chart = render.DistributionChart(m.snaps, opts)
	}

	status := green.Render("●")
	if m.running {
		status = dim.Render("○")
	}
	return "  " + status + "\n" + chart + "\n\n"
}

func (m model) viewMetrics() string {
	var b strings.Builder
	for _, name := range []string{"mean_bin", "heat_pump_duty", "fossil_duty", "total_mass"} {
		v, ok := m.metrics[name]
		if !ok {
			continue
		}
		b.WriteString("      " + dim.Render(fmt.Sprintf("%-16s", name)) + white.Render(fmt.Sprintf("%.4f", v)) + "\n")
	}
	return b.String()
}

func sliderBar(s slider, width int) string {
	pos := int(math.Round((s.value - s.min) / (s.max - s.min) * float64(width-1)))
	var sb strings.Builder
	for i := 0; i < width; i++ {
		if i == pos {
			sb.WriteRune('●')
		} else {
			sb.WriteRune('─')
		}
	}
	return sb.String()
}

// Run starts the slider UI seeded from cfg.
func Run(cfg *config.Config) error {
	p := tea.NewProgram(newApp(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
