package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-logr/logr"
	"github.com/san-kum/tether/internal/config"
	"github.com/san-kum/tether/internal/tether"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

var presetInfo = map[string]string{
	"catenary": "one span hanging under gravity",
	"drape":    "cable falling over a box",
	"bundle":   "three cables stacking on a floor",
	"zigzag":   "free and tangent anchors",
}

const (
	stateMenu = iota
	stateSim
)

type menu struct {
	state, cursor int
	presets       []string
	logger        logr.Logger
	scene         *tether.Scene
	live          Model
	err           error
}

// NewInteractiveApp lists the scene presets and opens the chosen one in the
// live viewer.
func NewInteractiveApp(logger logr.Logger) *menu {
	return &menu{state: stateMenu, presets: config.ListPresets(), logger: logger}
}

func (m menu) Init() tea.Cmd { return nil }

func (m menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == stateSim {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.close()
			return m, nil
		}
		next, cmd := m.live.Update(msg)
		m.live = next.(Model)
		return m, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter":
		return m.open()
	}
	return m, nil
}

func (m menu) open() (tea.Model, tea.Cmd) {
	if len(m.presets) == 0 {
		return m, nil
	}
	name := m.presets[m.cursor]
	scene, err := config.GetPreset(name).Build(m.logger)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.scene = scene
	m.live = NewModel(scene, name)
	m.state = stateSim
	return m, m.live.Init()
}

func (m *menu) close() {
	if m.scene != nil {
		m.scene.Release()
		m.scene = nil
	}
	m.state = stateMenu
}

func (m menu) View() string {
	if m.state == stateSim {
		return m.live.View() + "\n" + dimmer.Render("esc: back to presets")
	}

	var b strings.Builder
	b.WriteString(cyan.Bold(true).Render("TETHER") + dim.Render("  cable scenes") + "\n\n")
	for i, name := range m.presets {
		line := fmt.Sprintf("%-10s %s", name, dim.Render(presetInfo[name]))
		if i == m.cursor {
			b.WriteString(cyan.Render("▸ ") + white.Render(line) + "\n")
		} else {
			b.WriteString("  " + dim.Render(line) + "\n")
		}
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + dimmer.Render("↑↓ select · enter open · q quit"))
	return b.String()
}

// RunInteractive runs the preset menu until the user quits.
func RunInteractive(logger logr.Logger) error {
	app := NewInteractiveApp(logger)
	final, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
	switch m := final.(type) {
	case menu:
		m.close()
	case *menu:
		m.close()
	}
	return err
}

// RunLive shows scene in the live viewer until the user quits.
func RunLive(scene *tether.Scene, title string) error {
	_, err := tea.NewProgram(NewModel(scene, title), tea.WithAltScreen()).Run()
	return err
}
