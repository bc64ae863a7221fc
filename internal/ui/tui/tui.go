// Package tui implements the interactive dashboard: a bubbletea program
// that polls the engine's Snapshot on a timer and renders registers,
// disassembly, stack, heap, and the debugger's own output as five panes
// plus a prompt line, styled with lipgloss, assembly colorized through
// colorize.Instruction.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zboralski/heretek/internal/engine"
	"github.com/zboralski/heretek/internal/mi"
	"github.com/zboralski/heretek/internal/snapshot"
	"github.com/zboralski/heretek/internal/ui/colorize"
)

const pollInterval = 100 * time.Millisecond

var (
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
)

// Writer is the minimal transport write-side the dashboard needs to send
// a command typed at the prompt.
type Writer interface {
	WriteLine(cmd string) error
}

// Model is the bubbletea program state: a read-only view onto the
// engine's Snapshot plus the command line being edited.
type Model struct {
	snap   *snapshot.Snapshot
	w      Writer
	output viewport.Model
	input  string
	width  int
	height int
	quit   bool
}

// New builds a Model polling e's Snapshot and sending typed commands
// through w (typically the transport connection).
func New(e *engine.Engine, w Writer) Model {
	vp := viewport.New(80, 10)
	return Model{snap: e.Snapshot(), w: w, output: vp}
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.output.Width = m.width - 4
		m.output.Height = m.height/2 - 4
		return m, nil
	case tickMsg:
		m.output.SetContent(strings.Join(m.snap.Output(), "\n"))
		m.output.GotoBottom()
		return m, tick()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quit = true
		return m, tea.Quit
	case tea.KeyEnter:
		if m.input != "" && m.w != nil {
			_ = m.w.WriteLine(m.input)
		}
		m.input = ""
		return m, nil
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil
	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	case tea.KeySpace:
		m.input += " "
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if m.quit {
		return ""
	}
	registers := paneStyle.Render(titleStyle.Render("registers") + "\n" + m.renderRegisters())
	disasm := paneStyle.Render(titleStyle.Render("disassembly") + "\n" + m.renderAsm())
	stack := paneStyle.Render(titleStyle.Render("stack") + "\n" + m.renderStack())
	heap := paneStyle.Render(titleStyle.Render("heap") + "\n" + m.renderHeap())
	top := lipgloss.JoinHorizontal(lipgloss.Top, registers, disasm, stack, heap)

	output := paneStyle.Render(titleStyle.Render("output") + "\n" + m.output.View())
	prompt := m.renderPrompt()

	return lipgloss.JoinVertical(lipgloss.Left, top, output, prompt)
}

func (m Model) renderRegisters() string {
	var b strings.Builder
	names := m.snap.RegisterNames()
	regs := m.snap.Registers()
	for _, r := range regs {
		name := r.Number
		if idx, err := atoi(r.Number); err == nil && idx < len(names) {
			name = names[idx]
		}
		val := ""
		if r.Value != nil {
			val = *r.Value
		}
		fmt.Fprintf(&b, "%-6s %s\n", name, colorize.Address(mi.ParseHexUint64(val)))
	}
	return b.String()
}

func (m Model) renderAsm() string {
	var b strings.Builder
	for _, a := range m.snap.Asm() {
		b.WriteString(colorize.Instruction(fmt.Sprintf("0x%x: %s", a.Address, a.Inst)))
		b.WriteByte('\n')
	}
	return b.String()
}

func (m Model) renderStack() string {
	var b strings.Builder
	for _, addr := range m.snap.StackAddrs() {
		chain := m.snap.StackDeref(addr)
		parts := make([]string, 0, chain.Len())
		for _, v := range chain.Values {
			parts = append(parts, colorize.Address(v))
		}
		fmt.Fprintf(&b, "%s -> %s\n", colorize.Address(addr), strings.Join(parts, " -> "))
	}
	return b.String()
}

func (m Model) renderHeap() string {
	var b strings.Builder
	for _, c := range m.snap.Heap() {
		fmt.Fprintf(&b, "%s %-16s %d\n", colorize.Address(c.Address), c.ChunkType, c.Size)
	}
	return b.String()
}

func (m Model) renderPrompt() string {
	status := m.snap.Status()
	if status == "" {
		status = "idle"
	}
	return fmt.Sprintf("(%s) %s%s", status, m.snap.Prompt(), m.input)
}

func atoi(s string) (int, error) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("not a number: %s", s)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// Program wraps a bubbletea program so callers outside this package (the
// transport pump, on a dead connection) can request a clean shutdown.
type Program struct {
	p *tea.Program
}

// NewProgram builds the dashboard program in alt-screen mode.
func NewProgram(e *engine.Engine, w Writer) *Program {
	return &Program{p: tea.NewProgram(New(e, w), tea.WithAltScreen())}
}

// Run blocks until the user quits or Quit is called from elsewhere.
func (p *Program) Run() error {
	_, err := p.p.Run()
	return err
}

// Quit requests the program exit; safe to call from any goroutine.
func (p *Program) Quit() {
	p.p.Quit()
}

// Run starts the bubbletea program and blocks until the user quits.
func Run(e *engine.Engine, w Writer) error {
	return NewProgram(e, w).Run()
}
