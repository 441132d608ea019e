package viz

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr/testr"
	"github.com/san-kum/tether/internal/config"
	"github.com/san-kum/tether/internal/tether"
)

func zigzag(t *testing.T) *tether.Scene {
	t.Helper()
	s := config.GetPreset("zigzag")
	s.Options.SimulationDuration = 0.05
	scene, err := s.Build(testr.New(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(scene.Release)
	return scene
}

func send(m Model, keys ...string) Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestModelStartsRealtime(t *testing.T) {
	m := NewModel(zigzag(t), "zigzag")
	for _, c := range m.cables {
		if !c.Realtime() {
			t.Errorf("%s not in realtime", c.Name())
		}
	}
	if m.err != nil {
		t.Errorf("err = %v", m.err)
	}
}

func TestModelTicks(t *testing.T) {
	m := NewModel(zigzag(t), "zigzag")
	for i := 0; i < 5; i++ {
		next, cmd := m.Update(TickMsg(time.Now()))
		m = next.(Model)
		if cmd == nil {
			t.Fatal("tick did not schedule the next tick")
		}
	}
	if len(m.energy) != 5 {
		t.Errorf("energy samples = %d, want 5", len(m.energy))
	}

	m = send(m, " ")
	next, _ := m.Update(TickMsg(time.Now()))
	m = next.(Model)
	if len(m.energy) != 5 {
		t.Errorf("paused tick recorded energy")
	}
}

func TestModelEdits(t *testing.T) {
	m := NewModel(zigzag(t), "zigzag")
	c := m.current()
	before := c.PointLocation(1)

	m = send(m, "right", "l", "k")
	if m.point != 1 {
		t.Fatalf("point = %d, want 1", m.point)
	}
	got := c.PointLocation(1)
	if got.X() != before.X()+moveStep || got.Z() != before.Z()+moveStep {
		t.Errorf("point moved to %v from %v", got, before)
	}

	slack := c.Guide().Point(1).Slack
	m = send(m, "+")
	if s := c.Guide().Point(1).Slack; s != slack+slackStep {
		t.Errorf("slack = %f, want %f", s, slack+slackStep)
	}

	fixed := c.Guide().Point(1).FixedAnchor
	m = send(m, "f")
	if c.Guide().Point(1).FixedAnchor == fixed {
		t.Error("anchor not toggled")
	}

	m = send(m, "left", "left")
	if m.point != 4 {
		t.Errorf("point wrapped to %d, want 4", m.point)
	}
	if m.err != nil {
		t.Errorf("err = %v", m.err)
	}
}

func TestModelDilation(t *testing.T) {
	m := NewModel(zigzag(t), "zigzag")
	m = send(m, "]", "]", "]", "]", "]")
	if m.dilation != 8 {
		t.Errorf("dilation = %f, want 8", m.dilation)
	}
	m = send(m, "[")
	if m.dilation != 4 {
		t.Errorf("dilation = %f, want 4", m.dilation)
	}
}

func TestModelView(t *testing.T) {
	m := NewModel(zigzag(t), "zigzag")
	view := m.View()
	for _, want := range []string{"ZIGZAG", "waypoints", "Particles", "Slack"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m = send(m, "?")
	if !strings.Contains(m.View(), "KEYBOARD SHORTCUTS") {
		t.Error("help overlay not shown")
	}
}

func TestMenu(t *testing.T) {
	app := NewInteractiveApp(testr.New(t))
	if !strings.Contains(app.View(), "catenary") {
		t.Error("menu missing catenary")
	}

	var m tea.Model = *app
	for _, name := range config.ListPresets() {
		if name == "zigzag" {
			break
		}
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got := m.(menu)
	if got.state != stateSim {
		t.Fatalf("state = %d, want sim (err %v)", got.state, got.err)
	}
	if !strings.Contains(m.View(), "ZIGZAG") {
		t.Error("live view not shown")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.(menu).state != stateMenu {
		t.Error("esc did not return to the menu")
	}
}
