package tui

import (
	"context"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quintet/api/internal/orchestrator"
)

type staticGenerator struct{}

func (staticGenerator) GenerateVariant(_ context.Context, prompt string, index int) (string, error) {
	return fmt.Sprintf("<html>%d %s</html>", index, prompt), nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func resolvedModel(t *testing.T) (Model, *orchestrator.Session) {
	t.Helper()
	updates, notify := NotifyChannel(16)
	s := orchestrator.NewSession(staticGenerator{}, orchestrator.WithNotify(notify))
	require.NoError(t, s.Submit(context.Background(), "todo"))
	s.Wait()
	return New(context.Background(), s, updates, "todo"), s
}

func TestSelectionWraps(t *testing.T) {
	m, s := resolvedModel(t)

	m = press(t, m, runes("j"))
	assert.Equal(t, 1, s.Selected())
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, s.Selected())
	m = press(t, m, runes("k"))
	m = press(t, m, runes("k"))
	_ = press(t, m, runes("k"))
	assert.Equal(t, 4, s.Selected())
}

func TestMetricsToggle(t *testing.T) {
	m, _ := resolvedModel(t)

	m = press(t, m, runes("P"))
	assert.True(t, m.showMetrics)
	assert.Contains(t, m.View(), "average")
	m = press(t, m, runes("X"))
	assert.False(t, m.showMetrics)
}

func TestEditorSavesLocally(t *testing.T) {
	m, s := resolvedModel(t)

	m = press(t, m, runes("j"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, modeEdit, m.mode)
	assert.Equal(t, "<html>1 todo</html>", m.editor.Value())

	m.editor.SetValue("<html>mine</html>")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeBrowse, m.mode)

	st, err := s.State(1)
	require.NoError(t, err)
	assert.Equal(t, "<html>mine</html>", st.EditedCode)
	assert.Equal(t, "<html>1 todo</html>", st.Code)
}

func TestPromptPanelRejectsBlank(t *testing.T) {
	m, s := resolvedModel(t)

	m = press(t, m, runes("L"))
	require.Equal(t, modePrompt, m.mode)
	assert.Equal(t, "todo", m.prompt.Value())

	m.prompt.SetValue("   ")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, modePrompt, m.mode)
	assert.Equal(t, orchestrator.ErrEmptyPrompt.Error(), m.status)
	assert.Equal(t, uint64(1), s.Generation())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeBrowse, m.mode)
}

func TestPromptPanelSubmits(t *testing.T) {
	m, s := resolvedModel(t)

	m = press(t, m, runes("L"))
	m.prompt.SetValue("a weather dashboard")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, modeBrowse, next.(Model).mode)

	assert.Nil(t, cmd())
	s.Wait()
	assert.Equal(t, "a weather dashboard", s.Prompt())
	assert.Equal(t, uint64(2), s.Generation())
}

func TestQuit(t *testing.T) {
	m, _ := resolvedModel(t)

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "待办事...", truncate("待办事项应用带暗色模式", 6))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
