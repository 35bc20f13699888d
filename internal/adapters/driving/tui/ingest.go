package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
)

// IngestOutcome is the final state of one tracked ingestion.
type IngestOutcome struct {
	DocumentID string
	Filename   string
	Ready      bool
	Message    string
}

type trackedIngest struct {
	doc      domain.Document
	fraction float64
	last     string
	done     bool
	failed   bool
	bar      progress.Model
}

// IngestModel renders live progress for a set of background ingestions and
// quits once every one of them has reached ready or error.
// The subscription must be taken before the ingestions are started.
type IngestModel struct {
	sub     driving.EventSubscription
	styles  *styles.Styles
	spinner spinner.Model
	order   []string
	tracked map[string]*trackedIngest
	width   int
	aborted bool
}

var _ tea.Model = (*IngestModel)(nil)

// NewIngestModel creates a progress view for docs.
func NewIngestModel(sub driving.EventSubscription, docs []domain.Document) *IngestModel {
	s := styles.DefaultStyles()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Title

	m := &IngestModel{
		sub:     sub,
		styles:  s,
		spinner: sp,
		tracked: make(map[string]*trackedIngest, len(docs)),
		width:   80,
	}
	for _, d := range docs {
		m.order = append(m.order, d.ID)
		m.tracked[d.ID] = &trackedIngest{
			doc:  d,
			last: "Queued",
			bar:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		}
	}
	return m
}

// Init implements tea.Model.
func (m *IngestModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.sub))
}

// Update implements tea.Model.
func (m *IngestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.aborted = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case messages.EventReceived:
		m.apply(msg.Event)
		if m.Done() {
			return m, tea.Quit
		}
		return m, waitForEvent(m.sub)

	case messages.SubscriptionClosed:
		return m, tea.Quit
	}
	return m, nil
}

// apply folds one event into the tracked ingestion it concerns.
func (m *IngestModel) apply(e domain.ProgressEvent) {
	t, ok := m.tracked[e.DocumentID]
	if !ok || t.done {
		return
	}

	t.last = e.Message
	if f, ok := ProgressFraction(e); ok && f > t.fraction {
		t.fraction = f
	}

	switch e.Kind {
	case domain.EventReady:
		t.done = true
		t.fraction = 1
	case domain.EventError, domain.EventDeleted:
		t.done = true
		t.failed = true
	}
}

// View implements tea.Model.
func (m *IngestModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Ingesting documents"))
	b.WriteString("\n\n")

	for _, id := range m.order {
		t := m.tracked[id]

		icon := m.spinner.View()
		switch {
		case t.failed:
			icon = m.styles.Error.Render("✗")
		case t.done:
			icon = m.styles.Success.Render("✓")
		}

		fmt.Fprintf(&b, "%s %s\n", icon, m.styles.Normal.Render(t.doc.Filename))
		fmt.Fprintf(&b, "  %s\n", t.bar.ViewAs(t.fraction))

		last := t.last
		if limit := m.width - 4; limit > 10 && len([]rune(last)) > limit {
			last = string([]rune(last)[:limit-3]) + "..."
		}
		style := m.styles.Muted
		if t.failed {
			style = m.styles.Error
		}
		fmt.Fprintf(&b, "  %s\n\n", style.Render(last))
	}

	b.WriteString(m.styles.Muted.Render("q: stop watching (ingestion continues in the background)"))
	return b.String()
}

// Done reports whether every tracked ingestion has finished.
func (m *IngestModel) Done() bool {
	for _, t := range m.tracked {
		if !t.done {
			return false
		}
	}
	return true
}

// Aborted reports whether the user quit before all ingestions finished.
func (m *IngestModel) Aborted() bool {
	return m.aborted
}

// Outcomes returns the final state of each ingestion in submission order.
func (m *IngestModel) Outcomes() []IngestOutcome {
	out := make([]IngestOutcome, 0, len(m.order))
	for _, id := range m.order {
		t := m.tracked[id]
		out = append(out, IngestOutcome{
			DocumentID: id,
			Filename:   t.doc.Filename,
			Ready:      t.done && !t.failed,
			Message:    t.last,
		})
	}
	return out
}

// waitForEvent blocks on the next event from the subscription.
func waitForEvent(sub driving.EventSubscription) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-sub.Events()
		if !ok {
			return messages.SubscriptionClosed{}
		}
		return messages.EventReceived{Event: e}
	}
}
