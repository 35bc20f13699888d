package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()
	require.NotNil(t, km)

	tests := []struct {
		name    string
		binding key.Binding
		keys    []string
	}{
		{"quit", km.Quit, []string{"q", "ctrl+c"}},
		{"help", km.Help, []string{"?"}},
		{"back", km.Back, []string{"esc"}},
		{"up", km.Up, []string{"up", "k"}},
		{"down", km.Down, []string{"down", "j"}},
		{"analyze", km.Analyze, []string{"a"}},
		{"ask", km.Ask, []string{"enter", "/"}},
		{"delete", km.Delete, []string{"x"}},
		{"refresh", km.Refresh, []string{"r"}},
		{"submit", km.Submit, []string{"enter"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.keys, tt.binding.Keys())
			assert.NotEmpty(t, tt.binding.Help().Desc)
		})
	}
}

func TestShortHelp(t *testing.T) {
	km := DefaultKeyMap()
	help := km.ShortHelp()

	require.Len(t, help, 4)
	assert.Equal(t, km.Quit.Keys(), help[3].Keys())
}

func TestAskHelp(t *testing.T) {
	km := DefaultKeyMap()
	assert.Len(t, km.AskHelp(), 2)
}

func TestFullHelp(t *testing.T) {
	km := DefaultKeyMap()
	full := km.FullHelp()

	require.Len(t, full, 3)
	for _, group := range full {
		assert.NotEmpty(t, group)
	}
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, Matches("q", km.Quit))
	assert.True(t, Matches("ctrl+c", km.Quit))
	assert.True(t, Matches("/", km.Ask))
	assert.False(t, Matches("z", km.Quit))
	assert.False(t, Matches("", km.Delete))
}
