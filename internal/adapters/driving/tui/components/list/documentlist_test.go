package list

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

func testDocuments() []domain.Document {
	return []domain.Document{
		{ID: "d1", Filename: "metformin.pdf", Status: domain.StatusReady, TotalChunks: 12},
		{ID: "d2", Filename: "scan.png", Status: domain.StatusAnalyzing},
		{ID: "d3", Filename: "trial.docx", Status: domain.StatusError},
	}
}

func TestNewDocumentList(t *testing.T) {
	l := NewDocumentList(nil)

	require.NotNil(t, l)
	assert.Equal(t, 0, l.Count())
	assert.Nil(t, l.SelectedDocument())
}

func TestDocumentList_EmptyView(t *testing.T) {
	assert.Contains(t, NewDocumentList(nil).View(), "No documents")
}

func TestDocumentList_View(t *testing.T) {
	l := NewDocumentList(nil)
	l.SetDocuments(testDocuments())

	view := l.View()
	assert.Contains(t, view, "Documents (3)")
	assert.Contains(t, view, "metformin.pdf")
	assert.Contains(t, view, "12 chunks")
	assert.Contains(t, view, "analyzing")
	assert.Contains(t, view, "> ")
}

func TestDocumentList_Navigation(t *testing.T) {
	l := NewDocumentList(nil)
	l.SetDocuments(testDocuments())

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, l.Selected())

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	assert.Equal(t, 2, l.Selected())

	l.MoveDown()
	assert.Equal(t, 2, l.Selected(), "stops at the last document")

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, l.Selected())

	l.MoveUp()
	assert.Equal(t, 0, l.Selected(), "stops at the first document")
}

func TestDocumentList_SetDocumentsKeepsSelection(t *testing.T) {
	l := NewDocumentList(nil)
	l.SetDocuments(testDocuments())
	l.MoveDown()

	docs := testDocuments()
	docs[0], docs[1] = docs[1], docs[0]
	l.SetDocuments(docs)

	require.NotNil(t, l.SelectedDocument())
	assert.Equal(t, "d2", l.SelectedDocument().ID)
	assert.Equal(t, 0, l.Selected())
}

func TestDocumentList_Upsert(t *testing.T) {
	l := NewDocumentList(nil)
	l.SetDocuments(testDocuments())

	l.Upsert(domain.Document{ID: "d2", Filename: "scan.png", Status: domain.StatusReady, TotalChunks: 4})
	assert.Equal(t, 3, l.Count())
	assert.Equal(t, domain.StatusReady, l.Documents()[1].Status)

	l.Upsert(domain.Document{ID: "d4", Filename: "labs.xlsx", Status: domain.StatusUploaded})
	assert.Equal(t, 4, l.Count())
}

func TestDocumentList_Remove(t *testing.T) {
	l := NewDocumentList(nil)
	l.SetDocuments(testDocuments())
	l.MoveDown()
	l.MoveDown()

	l.Remove("d3")
	assert.Equal(t, 2, l.Count())
	assert.Equal(t, 1, l.Selected())

	l.Remove("missing")
	assert.Equal(t, 2, l.Count())
}

func TestDocumentList_TruncatesLongNames(t *testing.T) {
	l := NewDocumentList(nil)
	l.SetDimensions(50, 10)
	l.SetDocuments([]domain.Document{{ID: "d1", Filename: "a-very-long-clinical-guideline-filename-2024.pdf", Status: domain.StatusUploaded}})

	assert.Contains(t, l.View(), "...")
}
