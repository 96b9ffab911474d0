package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/jointsim/internal/body"
	"github.com/san-kum/jointsim/internal/joint"
	"github.com/san-kum/jointsim/internal/world"
)

const (
	canvasWidth     = 60
	canvasHeight    = 22
	historyCapacity = 300
	frameRate       = time.Second / 30
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model is the live view of a running world.
type Model struct {
	name     string
	world    *world.World
	initial  *world.Snapshot
	opts     []world.Option
	dt       float64
	canvas   *Canvas
	camera   Camera
	theme    int
	running  bool
	selected int
	energy   []float64
	err      error
}

// NewModel snapshots w so R can restore it later.
func NewModel(name string, w *world.World, dt float64, opts ...world.Option) (Model, error) {
	snap, err := w.Snapshot()
	if err != nil {
		return Model{}, err
	}
	m := Model{
		name:    name,
		world:   w,
		initial: snap,
		opts:    opts,
		dt:      dt,
		canvas:  NewCanvas(canvasWidth, canvasHeight),
		running: true,
		energy:  make([]float64, 0, historyCapacity),
	}
	m.camera = Fit(m.canvas, m.positions())
	return m, nil
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab":
			if n := m.world.Joints().Len(); n > 0 {
				m.selected = (m.selected + 1) % n
			}
		case "up", "k":
			m.scaleStiffness(1.1)
		case "down", "j":
			m.scaleStiffness(1 / 1.1)
		case "l":
			if s := m.selectedSpring(); s != nil {
				if s.LimitsEnabled() {
					s.DisableLimits()
				} else {
					s.EnableLimits()
				}
			}
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() {
	m.world.Step(m.dt)
	m.energy = append(m.energy, m.world.Energy().Total())
	if len(m.energy) > historyCapacity {
		m.energy = m.energy[1:]
	}
}

func (m *Model) reset() {
	w, err := world.Restore(m.initial, m.opts...)
	if err != nil {
		m.err = err
		return
	}
	m.world = w
	m.energy = m.energy[:0]
	m.selected = 0
}

func (m *Model) selectedSpring() *joint.SpringJoint {
	_, springs := m.world.Joints().Springs()
	if m.selected >= len(springs) {
		return nil
	}
	return springs[m.selected]
}

func (m *Model) scaleStiffness(f float64) {
	s := m.selectedSpring()
	if s == nil {
		return
	}
	if err := s.SetStiffness(s.Stiffness() * f); err != nil {
		m.err = err
	}
}

func (m *Model) positions() []mgl64.Vec3 {
	var pts []mgl64.Vec3
	m.world.Bodies().Each(func(_ body.Handle, b *body.Body) bool {
		pts = append(pts, b.Position)
		return true
	})
	return pts
}

func (m *Model) draw() {
	m.canvas.Clear()
	bodies := m.world.Bodies()
	m.world.Joints().Each(func(_ joint.Handle, j *joint.Joint) bool {
		s, ok := j.Constraint.(*joint.SpringJoint)
		if !ok {
			return true
		}
		b1, ok1 := bodies.Get(j.Body1)
		b2, ok2 := bodies.Get(j.Body2)
		if !ok1 || !ok2 {
			return true
		}
		p1, p2 := s.WorldAnchors(b1, b2)
		x0, y0 := m.camera.Project(m.canvas, p1)
		x1, y1 := m.camera.Project(m.canvas, p2)
		m.canvas.DrawLine(x0, y0, x1, y1)
		return true
	})
	bodies.Each(func(_ body.Handle, b *body.Body) bool {
		x, y := m.camera.Project(m.canvas, b.Position)
		r := 1
		if !b.IsDynamic() {
			r = 2
		}
		m.canvas.DrawDot(x, y, r)
		return true
	})
}

func (m Model) View() string {
	st := Themes[m.theme].Styles()
	m.draw()

	var s strings.Builder
	s.WriteString(st.Header.Render(strings.ToUpper(m.name)) + "\n")
	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	s.WriteString(st.Active.Render(status) + "\n\n")
	s.WriteString(st.Label.Render("Time") + st.Value.Render(fmt.Sprintf("%.2fs", m.world.Time())) + "\n")
	if n := len(m.energy); n > 0 {
		s.WriteString(st.Label.Render("Energy") + st.Value.Render(fmt.Sprintf("%.3f", m.energy[n-1])) + "\n")
		s.WriteString(st.Muted.Render(Sparkline(m.energy, 30)) + "\n")
	}

	s.WriteString("\nSPRINGS\n")
	handles, springs := m.world.Joints().Springs()
	for i, sp := range springs {
		l, _ := m.world.Separation(handles[i])
		line := fmt.Sprintf("%-12s L=%6.3f rest=%5.2f k=%7.2f", handles[i], l, sp.RestLength(), sp.Stiffness())
		if sp.LimitsEnabled() {
			line += fmt.Sprintf(" [%.2g,%.2g]", sp.LimitsMinLength(), sp.LimitsMaxLength())
		}
		style := st.Value
		switch {
		case i == m.selected:
			style = st.Active
		case sp.LimitsUpperImpulse() > 0 || sp.LimitsLowerImpulse() > 0:
			style = st.Warning
		}
		prefix := "  "
		if i == m.selected {
			prefix = "> "
		}
		s.WriteString(style.Render(prefix+line) + "\n")
	}
	if m.err != nil {
		s.WriteString("\n" + st.Warning.Render(m.err.Error()) + "\n")
	}
	s.WriteString(st.Muted.Render("\nSP:Pause R:Reset TAB:Select K/J:Stiffness L:Limits T:Theme Q:Quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top, st.Panel.Render(m.canvas.String()), lipgloss.NewStyle().PaddingLeft(2).Render(s.String()))
}

// Run blocks until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
