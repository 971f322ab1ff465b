// Package viz previews rendered frame sequences in the terminal.
package viz

import (
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// Show plays the frame sequence interactively. In a non-interactive
// context (stdout not a terminal) it does nothing and returns nil.
func Show(frames []*image.RGBA, delay time.Duration) error {
	if len(frames) == 0 {
		return nil
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return nil
	}
	if delay <= 0 {
		delay = 40 * time.Millisecond
	}

	p := tea.NewProgram(newModel(frames, delay), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type tickMsg time.Time

// Model steps through the frames, redrawing each as half-block character
// art scaled to the terminal.
type Model struct {
	frames  []*image.RGBA
	idx     int
	playing bool
	delay   time.Duration
	width   int
	height  int
}

func newModel(frames []*image.RGBA, delay time.Duration) Model {
	return Model{
		frames:  frames,
		playing: true,
		delay:   delay,
		width:   80,
		height:  24,
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.delay, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if m.playing {
			m.idx = (m.idx + 1) % len(m.frames)
		}
		return m, m.tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.playing = !m.playing
		case "left", "h":
			m.playing = false
			m.idx = (m.idx - 1 + len(m.frames)) % len(m.frames)
		case "right", "l":
			m.playing = false
			m.idx = (m.idx + 1) % len(m.frames)
		case "0":
			m.idx = 0
		}
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render("muflow preview"))
	sb.WriteString(infoStyle.Render(fmt.Sprintf("  frame %d/%d", m.idx+1, len(m.frames))))
	if !m.playing {
		sb.WriteString(infoStyle.Render("  [paused]"))
	}
	sb.WriteString("\n\n")

	cols := m.width
	rows := (m.height - 5) * 2
	if cols < 8 {
		cols = 8
	}
	if rows < 8 {
		rows = 8
	}
	sb.WriteString(renderHalfBlocks(m.frames[m.idx], cols, rows))

	sb.WriteString(helpStyle.Render("space pause · ←/→ step · 0 rewind · q quit"))
	return sb.String()
}

// renderHalfBlocks downsamples the image to cols x rows pixels and prints
// them two per character cell with the upper-half block, foreground for
// the top pixel and background for the bottom one.
func renderHalfBlocks(img *image.RGBA, cols, rows int) string {
	b := img.Bounds()
	sample := func(cx, cy int) lipgloss.Color {
		px := b.Min.X + cx*b.Dx()/cols
		py := b.Min.Y + cy*b.Dy()/rows
		c := img.RGBAAt(px, py)
		return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
	}

	var sb strings.Builder
	for cy := 0; cy+1 < rows; cy += 2 {
		for cx := 0; cx < cols; cx++ {
			style := lipgloss.NewStyle().
				Foreground(sample(cx, cy)).
				Background(sample(cx, cy+1))
			sb.WriteString(style.Render("▀"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
