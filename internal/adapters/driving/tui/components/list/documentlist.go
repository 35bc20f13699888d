// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medrag/internal/core/domain"
)

// DocumentList displays registry documents in a navigable list.
type DocumentList struct {
	docs     []domain.Document
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewDocumentList creates a new document list component.
func NewDocumentList(s *styles.Styles) *DocumentList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &DocumentList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Update handles list navigation messages.
func (l *DocumentList) Update(msg tea.Msg) (*DocumentList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the document list.
func (l *DocumentList) View() string {
	if len(l.docs) == 0 {
		return l.styles.Muted.Render("No documents. Upload one with 'medrag ingest <file>'.")
	}

	lines := make([]string, 0, len(l.docs)+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Documents (%d)", len(l.docs))), "")

	visible := l.height - 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.docs))

	for i := start; i < end; i++ {
		lines = append(lines, l.renderDocument(i, &l.docs[i]))
	}

	return strings.Join(lines, "\n")
}

func (l *DocumentList) renderDocument(index int, doc *domain.Document) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	maxName := l.width - 32
	if maxName < 10 {
		maxName = 10
	}
	name := doc.Filename
	if r := []rune(name); len(r) > maxName {
		name = string(r[:maxName-3]) + "..."
	}

	status := fmt.Sprintf("%-9s", doc.Status)
	chunks := ""
	if doc.Status == domain.StatusReady {
		chunks = fmt.Sprintf("%d chunks", doc.TotalChunks)
	}

	if index == l.selected {
		return l.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s  %s", indicator, maxName, name, status, chunks))
	}
	return l.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, maxName, name)) +
		l.styles.ForStatus(doc.Status).Render(status) + "  " +
		l.styles.Muted.Render(chunks)
}

// SetDocuments replaces the list, keeping the selection on the same document if it is still present.
func (l *DocumentList) SetDocuments(docs []domain.Document) {
	var selectedID string
	if cur := l.SelectedDocument(); cur != nil {
		selectedID = cur.ID
	}

	l.docs = docs
	l.selected = 0
	for i := range docs {
		if docs[i].ID == selectedID {
			l.selected = i
			break
		}
	}
}

// Upsert replaces the document with the same ID or appends it.
func (l *DocumentList) Upsert(doc domain.Document) {
	for i := range l.docs {
		if l.docs[i].ID == doc.ID {
			l.docs[i] = doc
			return
		}
	}
	l.docs = append(l.docs, doc)
}

// Remove drops a document by ID.
func (l *DocumentList) Remove(id string) {
	for i := range l.docs {
		if l.docs[i].ID == id {
			l.docs = append(l.docs[:i], l.docs[i+1:]...)
			if l.selected >= len(l.docs) && l.selected > 0 {
				l.selected--
			}
			return
		}
	}
}

// Documents returns the current documents.
func (l *DocumentList) Documents() []domain.Document {
	return l.docs
}

// Selected returns the index of the selected document.
func (l *DocumentList) Selected() int {
	return l.selected
}

// SelectedDocument returns the currently selected document, or nil if none.
func (l *DocumentList) SelectedDocument() *domain.Document {
	if len(l.docs) == 0 || l.selected < 0 || l.selected >= len(l.docs) {
		return nil
	}
	return &l.docs[l.selected]
}

// MoveUp moves selection up.
func (l *DocumentList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *DocumentList) MoveDown() {
	if l.selected < len(l.docs)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *DocumentList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of documents.
func (l *DocumentList) Count() int {
	return len(l.docs)
}
