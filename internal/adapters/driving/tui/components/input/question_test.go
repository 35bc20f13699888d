package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuestionInput(t *testing.T) {
	q := NewQuestionInput(nil)

	require.NotNil(t, q)
	assert.Empty(t, q.Value())
	assert.False(t, q.Focused())
}

func TestQuestionInput_TypingWhenFocused(t *testing.T) {
	q := NewQuestionInput(nil)
	q.Focus()

	for _, r := range "dose?" {
		q, _ = q.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	assert.Equal(t, "dose?", q.Value())
}

func TestQuestionInput_ValueIsTrimmed(t *testing.T) {
	q := NewQuestionInput(nil)
	q.SetValue("  contraindications?  ")

	assert.Equal(t, "contraindications?", q.Value())
}

func TestQuestionInput_Reset(t *testing.T) {
	q := NewQuestionInput(nil)
	q.SetValue("something")
	q.Reset()

	assert.Empty(t, q.Value())
}

func TestQuestionInput_FocusBlur(t *testing.T) {
	q := NewQuestionInput(nil)

	q.Focus()
	assert.True(t, q.Focused())

	q.Blur()
	assert.False(t, q.Focused())
}

func TestQuestionInput_View(t *testing.T) {
	q := NewQuestionInput(nil)
	q.SetWidth(80)

	assert.Contains(t, q.View(), "Question:")
}
