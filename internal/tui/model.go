package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/quintet/api/internal/orchestrator"
)

type mode int

const (
	modeBrowse mode = iota
	modePrompt
	modeEdit
)

type updateMsg orchestrator.Update

type errMsg struct{ err error }

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBA08"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#7D56F4")).Padding(0, 1)
)

const previewLines = 12

// NotifyChannel returns a channel fed by the returned session callback.
// Updates are dropped when the channel is full; every redraw reads a fresh snapshot.
func NotifyChannel(size int) (chan orchestrator.Update, func(orchestrator.Update)) {
	ch := make(chan orchestrator.Update, size)
	return ch, func(u orchestrator.Update) {
		select {
		case ch <- u:
		default:
		}
	}
}

// Model is the bubbletea model comparing the five variants of a session
type Model struct {
	ctx           context.Context
	session       *orchestrator.Session
	updates       <-chan orchestrator.Update
	initialPrompt string

	spinner spinner.Model
	prompt  textinput.Model
	editor  textarea.Model

	mode        mode
	showMetrics bool
	status      string
	width       int
}

// New creates the model. When initialPrompt is set it is submitted on start.
func New(ctx context.Context, session *orchestrator.Session, updates <-chan orchestrator.Update, initialPrompt string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ti := textinput.New()
	ti.Placeholder = "Describe the web app you want..."
	ti.CharLimit = 2000
	ti.Width = 80

	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.SetWidth(100)
	ta.SetHeight(24)

	m := Model{
		ctx:           ctx,
		session:       session,
		updates:       updates,
		initialPrompt: initialPrompt,
		spinner:       sp,
		prompt:        ti,
		editor:        ta,
		width:         100,
	}
	if strings.TrimSpace(initialPrompt) == "" {
		m.mode = modePrompt
		m.prompt.Focus()
	}
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.waitForUpdate()}
	if strings.TrimSpace(m.initialPrompt) != "" {
		cmds = append(cmds, m.submit(m.initialPrompt))
	} else {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.updates
		if !ok {
			return nil
		}
		return updateMsg(u)
	}
}

func (m Model) submit(prompt string) tea.Cmd {
	return func() tea.Msg {
		if err := m.session.Submit(m.ctx, prompt); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.editor.SetWidth(msg.Width - 4)
		if msg.Height > 10 {
			m.editor.SetHeight(msg.Height - 8)
		}
		return m, nil

	case updateMsg:
		return m, m.waitForUpdate()

	case errMsg:
		m.status = msg.err.Error()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modePrompt:
			return m.updatePrompt(msg)
		case modeEdit:
			return m.updateEditor(msg)
		default:
			return m.updateBrowse(msg)
		}
	}

	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "L":
		m.mode = modePrompt
		m.prompt.SetValue(m.session.Prompt())
		m.prompt.CursorEnd()
		return m, m.prompt.Focus()
	case "P", "X":
		m.showMetrics = !m.showMetrics
	case "enter":
		idx := m.session.Selected()
		st, err := m.session.State(idx)
		if err != nil || !st.Succeeded() {
			m.status = "variant is not ready to edit"
			return m, nil
		}
		m.mode = modeEdit
		m.status = ""
		m.editor.SetValue(st.EditedCode)
		return m, m.editor.Focus()
	}
	return m, nil
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.prompt.Blur()
		return m, nil
	case tea.KeyEnter:
		value := m.prompt.Value()
		if strings.TrimSpace(value) == "" {
			m.status = orchestrator.ErrEmptyPrompt.Error()
			return m, nil
		}
		m.mode = modeBrowse
		m.status = ""
		m.prompt.Blur()
		return m, m.submit(value)
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		idx := m.session.Selected()
		if err := m.session.Edit(idx, m.editor.Value()); err != nil {
			m.status = err.Error()
		} else {
			m.status = "saved local edit"
		}
		m.editor.Blur()
		m.mode = modeBrowse
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m *Model) move(delta int) {
	n := len(m.session.Snapshot())
	if n == 0 {
		return
	}
	next := (m.session.Selected() + delta + n) % n
	_ = m.session.Select(next)
}

// View implements tea.Model
func (m Model) View() string {
	if m.mode == modeEdit {
		st, _ := m.session.State(m.session.Selected())
		return lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Editing "+st.Title),
			m.editor.View(),
			dimStyle.Render("esc: save locally"),
		)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quintet"))
	if p := m.session.Prompt(); p != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  #%d  %s", m.session.Generation(), truncate(p, m.width-20))))
	}
	b.WriteString("\n\n")

	states := m.session.Snapshot()
	selected := m.session.Selected()
	for _, st := range states {
		line := fmt.Sprintf(" %d. %-20s %s", st.Index+1, st.Title, m.statusOf(st))
		if st.Index == selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	if m.mode == modePrompt {
		b.WriteString("\n" + panelStyle.Render("Prompt\n"+m.prompt.View()) + "\n")
	}
	if m.showMetrics {
		b.WriteString("\n" + panelStyle.Render(metricsPanel(states)) + "\n")
	}

	if selected < len(states) && states[selected].Succeeded() {
		b.WriteString("\n" + panelStyle.Render(preview(states[selected].EditedCode, previewLines)) + "\n")
	}

	if m.status != "" {
		b.WriteString("\n" + errorStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("j/k: select  enter: edit  L: prompt  P: metrics  q: quit"))
	return b.String()
}

func (m Model) statusOf(st orchestrator.VariantState) string {
	switch {
	case st.IsLoading:
		return m.spinner.View() + " generating"
	case st.Failed():
		return errorStyle.Render("✗ " + st.Error)
	case st.Succeeded():
		return okStyle.Render(fmt.Sprintf("✓ %.1fs", st.ElapsedSeconds))
	default:
		return dimStyle.Render("idle")
	}
}

func metricsPanel(states []orchestrator.VariantState) string {
	var (
		b     strings.Builder
		total float64
		done  int
	)
	b.WriteString("Generation time\n")
	for _, st := range states {
		if st.Succeeded() {
			total += st.ElapsedSeconds
			done++
			b.WriteString(fmt.Sprintf("  %-20s %6.2fs\n", st.Title, st.ElapsedSeconds))
		} else {
			b.WriteString(fmt.Sprintf("  %-20s %7s\n", st.Title, "-"))
		}
	}
	if done > 0 {
		b.WriteString(fmt.Sprintf("  %-20s %6.2fs", "average", total/float64(done)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func preview(code string, maxLines int) string {
	lines := strings.Split(code, "\n")
	if len(lines) > maxLines {
		lines = append(lines[:maxLines], dimStyle.Render(fmt.Sprintf("... %d more lines", len(lines)-maxLines)))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
