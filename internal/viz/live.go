package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/tether/internal/metrics"
	"github.com/san-kum/tether/internal/spline"
	"github.com/san-kum/tether/internal/tether"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	frameRate       = 60

	moveStep  = 10.0
	slackStep = 10.0
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model is the live viewer. Every cable runs in realtime mode and advances
// one frame's worth of simulated time per tick.
type Model struct {
	scene    *tether.Scene
	cables   []*tether.Cable
	title    string
	selected int
	point    int

	canvas   *Canvas
	camera   *Camera
	running  bool
	dilation float64
	energy   []float64
	err      error
	showHelp bool
}

// NewModel switches every cable of scene to realtime and frames the camera
// on the guides.
func NewModel(scene *tether.Scene, title string) Model {
	m := Model{
		scene:    scene,
		cables:   scene.Ordered(),
		title:    title,
		canvas:   NewCanvas(width, height),
		camera:   NewCamera(),
		running:  true,
		dilation: 1,
		energy:   make([]float64, 0, historyCapacity),
	}

	var extent []mgl64.Vec3
	for _, c := range m.cables {
		g := c.Guide()
		drop := 0.5 * g.Length() / float64(max(g.NumSegments(), 1))
		for i := 0; i < g.NumPoints(); i++ {
			p := g.Point(i).Location
			extent = append(extent, p, p.Sub(mgl64.Vec3{0, 0, drop}))
		}
		if err := c.SetRealtime(true); err != nil {
			m.err = err
		}
	}
	m.camera.Fit(extent, width*2, height*4)
	return m
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "tab":
			if len(m.cables) > 0 {
				m.selected = (m.selected + 1) % len(m.cables)
				m.point = 0
			}
		case "left":
			m.selectPoint(-1)
		case "right":
			m.selectPoint(1)
		case "h":
			m.move(mgl64.Vec3{-moveStep, 0, 0})
		case "l":
			m.move(mgl64.Vec3{moveStep, 0, 0})
		case "k":
			m.move(mgl64.Vec3{0, 0, moveStep})
		case "j":
			m.move(mgl64.Vec3{0, 0, -moveStep})
		case "+", "=":
			m.slack(slackStep)
		case "-", "_":
			m.slack(-slackStep)
		case "f":
			m.toggleAnchor()
		case "r":
			m.reset()
		case "[":
			m.dilation = mgl64.Clamp(m.dilation/2, 0.125, 8)
		case "]":
			m.dilation = mgl64.Clamp(m.dilation*2, 0.125, 8)
		case "x":
			m.camera.RotatePitch(0.1)
		case "X":
			m.camera.RotatePitch(-0.1)
		case "z":
			m.camera.RotateYaw(0.1)
		case "Z":
			m.camera.RotateYaw(-0.1)
		case ">":
			m.camera.ZoomIn()
		case "<":
			m.camera.ZoomOut()
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.step(1.0 / frameRate)
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) current() *tether.Cable {
	if len(m.cables) == 0 {
		return nil
	}
	return m.cables[m.selected]
}

func (m *Model) selectPoint(dir int) {
	c := m.current()
	if c == nil {
		return
	}
	n := c.Guide().NumPoints()
	if n == 0 {
		return
	}
	m.point = (m.point + dir + n) % n
}

func (m *Model) move(delta mgl64.Vec3) {
	c := m.current()
	if c == nil {
		return
	}
	m.err = c.SetPointLocation(m.point, c.PointLocation(m.point).Add(delta), true)
}

func (m *Model) slack(delta float64) {
	c := m.current()
	if c == nil {
		return
	}
	seg := min(m.point, c.Guide().NumSegments()-1)
	m.err = c.AddSlack(seg, delta, true)
}

func (m *Model) toggleAnchor() {
	c := m.current()
	if c == nil {
		return
	}
	p := c.Guide().Point(m.point)
	m.err = c.SetPointOptions(m.point, !p.FixedAnchor, p.UseTangent, true)
}

// reset starts every cable over in realtime.
func (m *Model) reset() {
	m.energy = m.energy[:0]
	m.err = nil
	for _, c := range m.cables {
		if c.Realtime() {
			m.err = c.InvalidateAndResimulate(false)
		} else {
			m.err = c.SetRealtime(true)
		}
	}
}

// step advances every cable by dt of wall time and records the kinetic
// energy of the selected one.
func (m *Model) step(dt float64) {
	for _, c := range m.cables {
		if _, err := c.Poll(); err != nil {
			m.err = err
		}
		if err := c.Tick(dt, m.dilation); err != nil {
			m.err = err
		}
	}

	c := m.current()
	if c == nil {
		return
	}
	ke := metrics.NewKineticEnergy(c.Options().Substep)
	ke.Observe(c.Model().Series(), 0)
	m.energy = append(m.energy, ke.Value())
	if len(m.energy) > historyCapacity {
		m.energy = m.energy[1:]
	}
}

func (m *Model) draw() {
	m.canvas.Clear()
	w, h := m.canvas.Dots()
	// Detail finer than half a dot is invisible.
	tol := 0.5 / (m.camera.Scale * m.camera.Zoom)
	for _, c := range m.cables {
		m.canvas.DrawPolyline(m.camera.ProjectAll(spline.Simplify(c.ParticleLocations(), tol), w, h))
	}
	if c := m.current(); c != nil && c.Guide().NumPoints() > 0 {
		if d, ok := m.camera.Project(c.PointLocation(m.point), w, h); ok {
			m.canvas.Mark(d)
		}
	}
}

// View renders the canvas beside a stats panel for the selected cable.
func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Foreground(CurrentTheme.Primary).Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")

	c := m.current()
	if c == nil {
		s.WriteString(labelStyle.Render("no cables") + "\n")
		return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	}

	status := StatusRunning.Render("REALTIME")
	switch {
	case !m.running:
		status = StatusPaused.Render("PAUSED")
	case !c.Realtime() && c.IsRunning():
		status = StatusSettled.Render("SETTLING")
	case !c.Realtime():
		status = StatusSettled.Render("SETTLED")
	}
	s.WriteString(status + "\n\n")

	model := c.Model()
	simulated := 0.0
	if n := model.NumSegments(); n > 0 {
		simulated = model.Segments[n-1].SimulationTime
	}
	duration := c.Options().SimulationDuration

	for i, other := range m.cables {
		line := fmt.Sprintf("%-14s %s", other.Name(), other.State())
		if i == m.selected {
			s.WriteString(activeStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Width(0).Render(line) + "\n")
		}
	}
	s.WriteString("\n")

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	s.WriteString(SparklineChart(m.energy, 30) + "\n\n")

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	if duration > 0 {
		row("Time", fmt.Sprintf("%.2fs ", simulated)+ProgressBar(simulated/duration, 12))
	}
	row("Dilation", fmt.Sprintf("%.3gx", m.dilation))
	row("Particles", fmt.Sprintf("%d", model.NumParticles()))
	row("Rest", fmt.Sprintf("%.1f", c.Length()))
	sag := metrics.NewSag()
	sag.Observe(model.Series(), simulated)
	row("Sag", fmt.Sprintf("%.1f", sag.Value()))

	p := c.Guide().Point(min(m.point, c.Guide().NumPoints()-1))
	anchor := "free"
	if p.FixedAnchor {
		anchor = "fixed"
	}
	row("Point", fmt.Sprintf("%d (%s)", m.point, anchor))
	row("Slack", fmt.Sprintf("%.1f", p.Slack))

	if m.err != nil {
		s.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render("\n" + Separator(30) + "\nSP:Pause R:Reset Q:Quit ?:Help\nTab:Cable ←→:Point hjkl:Move +-:Slack"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  R        - Restart every cable      ║
║  Q        - Quit                     ║
║  Tab      - Select next cable        ║
║  ← →      - Select guide point       ║
║  h j k l  - Move point               ║
║  + -      - Add or remove slack      ║
║  F        - Toggle fixed anchor      ║
║  [ ]      - Slower / faster          ║
║  x X z Z  - Rotate camera            ║
║  < >      - Zoom                     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}
