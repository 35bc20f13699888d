package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
)

// maxLogEvents bounds the activity log kept in memory.
const maxLogEvents = 200

// App is the document dashboard following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	sub    driving.EventSubscription
	styles *styles.Styles
	keymap *keymap.KeyMap

	list    *list.DocumentList
	input   *input.QuestionInput
	bar     *status.Bar
	spinner spinner.Model

	// log is the tail of the progress event stream.
	log []domain.ProgressEvent

	// asking is the document open in the ask view.
	asking *domain.Document

	// answer is the last answer shown in the ask view.
	answer *domain.QueryResult

	// pending is true while a question is being answered.
	pending bool

	currentView messages.ViewType
	err         error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the dashboard and subscribes to registry events.
// Call Close when done to release the subscription.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Title

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		sub:         ports.Registry.Subscribe(0),
		styles:      s,
		keymap:      km,
		list:        list.NewDocumentList(s),
		input:       input.NewQuestionInput(s),
		bar:         status.NewBar(s, km),
		spinner:     sp,
		currentView: messages.ViewDocuments,
	}, nil
}

// WithContext sets the context used for registry calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Close releases the event subscription.
func (a *App) Close() {
	a.sub.Unsubscribe()
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("medrag"),
		a.loadDocuments(),
		waitForEvent(a.sub),
		a.spinner.Tick,
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		switch a.currentView {
		case messages.ViewAsk:
			return a.updateAsk(msg)
		case messages.ViewHelp:
			if keymap.Matches(msg.String(), a.keymap.Back) || keymap.Matches(msg.String(), a.keymap.Help) {
				a.currentView = messages.ViewDocuments
			}
			return a, nil
		default:
			return a.updateDocuments(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case messages.DocumentsLoaded:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.list.SetDocuments(msg.Documents)
		a.bar.SetDocumentCount(len(msg.Documents))
		return a, nil

	case messages.EventReceived:
		a.appendLog(msg.Event)
		cmds := []tea.Cmd{waitForEvent(a.sub)}
		// Statuses change on these events; everything else only adds to the log.
		switch msg.Event.Kind {
		case domain.EventUpload, domain.EventExtractionStart, domain.EventReady,
			domain.EventError, domain.EventDeleted:
			cmds = append(cmds, a.loadDocuments())
		}
		return a, tea.Batch(cmds...)

	case messages.SubscriptionClosed:
		return a, nil

	case messages.IngestStarted:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.list.Upsert(*msg.Document)
		a.bar.SetState(status.StateWorking)
		a.bar.SetMessage("Analysing " + msg.Document.Filename)
		return a, nil

	case messages.DocumentDeleted:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.list.Remove(msg.DocumentID)
		a.bar.SetDocumentCount(a.list.Count())
		a.bar.Clear()
		a.bar.SetMessage("Deleted " + msg.DocumentID)
		return a, nil

	case messages.AnswerReceived:
		a.pending = false
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.answer = msg.Result
		a.bar.SetState(status.StateAsking)
		a.bar.SetMessage("")
		return a, nil

	case messages.ErrorOccurred:
		a.setError(msg.Err)
		return a, nil

	case messages.ViewChanged:
		a.currentView = msg.View
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) updateDocuments(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, a.keymap.Quit):
		return a, tea.Quit
	case keymap.Matches(k, a.keymap.Help):
		a.currentView = messages.ViewHelp
		return a, nil
	case keymap.Matches(k, a.keymap.Refresh):
		a.bar.Clear()
		return a, a.loadDocuments()
	case keymap.Matches(k, a.keymap.Analyze):
		doc := a.list.SelectedDocument()
		if doc == nil {
			return a, nil
		}
		if !doc.Status.CanIngest() {
			a.setError(fmt.Errorf("%s is %s", doc.Filename, doc.Status))
			return a, nil
		}
		return a, a.startIngest(doc.ID)
	case keymap.Matches(k, a.keymap.Delete):
		doc := a.list.SelectedDocument()
		if doc == nil {
			return a, nil
		}
		return a, a.deleteDocument(doc.ID)
	case keymap.Matches(k, a.keymap.Ask):
		doc := a.list.SelectedDocument()
		if doc == nil {
			return a, nil
		}
		if doc.Status != domain.StatusReady {
			a.setError(fmt.Errorf("%s is not ready (%s)", doc.Filename, doc.Status))
			return a, nil
		}
		selected := *doc
		a.asking = &selected
		a.answer = nil
		a.input.Reset()
		a.currentView = messages.ViewAsk
		a.bar.Clear()
		a.bar.SetState(status.StateAsking)
		return a, a.input.Focus()
	}

	var cmd tea.Cmd
	a.list, cmd = a.list.Update(msg)
	return a, cmd
}

func (a *App) updateAsk(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.input.Blur()
		a.asking = nil
		a.answer = nil
		a.pending = false
		a.currentView = messages.ViewDocuments
		a.bar.Clear()
		return a, nil
	case tea.KeyEnter:
		question := a.input.Value()
		if question == "" || a.pending || a.asking == nil {
			return a, nil
		}
		a.pending = true
		a.answer = nil
		a.bar.SetState(status.StateWorking)
		a.bar.SetMessage("Answering...")
		return a, a.query(a.asking.ID, question)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) setError(err error) {
	a.err = err
	a.bar.SetState(status.StateError)
	a.bar.SetMessage(errorText(err))
}

// errorText renders domain errors the way a user reads them.
func errorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotReady):
		return "document is not ready"
	case errors.Is(err, domain.ErrConflict):
		return "an ingestion is already running"
	case errors.Is(err, domain.ErrCapabilityUnavailable):
		return "AI capability unavailable, try again later"
	default:
		return err.Error()
	}
}

func (a *App) appendLog(e domain.ProgressEvent) {
	a.log = append(a.log, e)
	if len(a.log) > maxLogEvents {
		a.log = a.log[len(a.log)-maxLogEvents:]
	}
}

func (a *App) loadDocuments() tea.Cmd {
	registry, ctx := a.ports.Registry, a.ctx
	return func() tea.Msg {
		docs, err := registry.List(ctx)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

func (a *App) startIngest(id string) tea.Cmd {
	registry, ctx := a.ports.Registry, a.ctx
	return func() tea.Msg {
		doc, err := registry.StartIngest(ctx, id)
		return messages.IngestStarted{Document: doc, Err: err}
	}
}

func (a *App) deleteDocument(id string) tea.Cmd {
	registry, ctx := a.ports.Registry, a.ctx
	return func() tea.Msg {
		return messages.DocumentDeleted{DocumentID: id, Err: registry.Delete(ctx, id)}
	}
}

func (a *App) query(id, question string) tea.Cmd {
	registry, ctx := a.ports.Registry, a.ctx
	return func() tea.Msg {
		res, err := registry.Query(ctx, id, question)
		return messages.AnswerReceived{Result: res, Err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewAsk:
		body = a.viewAsk()
	case messages.ViewHelp:
		body = a.viewHelp()
	default:
		body = a.viewDocuments()
	}
	return body + "\n" + a.bar.View()
}

func (a *App) viewDocuments() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("medrag"))
	b.WriteString("\n\n")
	b.WriteString(a.list.View())
	b.WriteString("\n\n")
	b.WriteString(a.styles.Subtitle.Render("Activity"))
	b.WriteString("\n")

	for _, e := range a.logTail() {
		line := fmt.Sprintf("%s  %-8s %s",
			e.Timestamp.Format("15:04:05"), shortID(e.DocumentID), e.Message)
		b.WriteString(a.styles.ForLevel(e.Level).Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// logTail returns as many recent events as fit below the list.
func (a *App) logTail() []domain.ProgressEvent {
	room := a.height - a.list.Count() - 9
	if room < 3 {
		room = 3
	}
	if len(a.log) <= room {
		return a.log
	}
	return a.log[len(a.log)-room:]
}

func (a *App) viewAsk() string {
	var b strings.Builder
	name := ""
	if a.asking != nil {
		name = a.asking.Filename
	}
	b.WriteString(a.styles.Title.Render("Ask " + name))
	b.WriteString("\n\n")
	b.WriteString(a.input.View())
	b.WriteString("\n\n")

	if a.pending {
		b.WriteString(a.spinner.View() + " " + a.styles.Muted.Render("Retrieving evidence and generating an answer..."))
		return b.String()
	}
	if a.answer == nil {
		return b.String()
	}

	answerStyle := a.styles.Answer.Width(max(a.width-4, 20))
	if a.answer.Abstained {
		b.WriteString(answerStyle.Render(a.styles.Warning.Render(a.answer.Answer)))
	} else {
		b.WriteString(answerStyle.Render(a.answer.Answer))
	}
	b.WriteString("\n\n")

	if len(a.answer.Evidence) > 0 {
		b.WriteString(a.styles.Subtitle.Render("Sources"))
		b.WriteString("\n")
		for _, ev := range a.answer.Evidence {
			b.WriteString(a.styles.Muted.Render(fmt.Sprintf("  %s  (%.2f)", ev.Chunk.Provenance(), ev.Score)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %-8s %s\n", h.Key, h.Desc))
		}
		b.WriteString("\n")
	}
	b.WriteString(a.styles.Muted.Render("[esc] back"))
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Answer returns the answer shown in the ask view.
func (a *App) Answer() *domain.QueryResult {
	return a.answer
}

// Log returns the buffered progress events.
func (a *App) Log() []domain.ProgressEvent {
	return a.log
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.list.SetDimensions(width, max(height/2, 3))
	a.input.SetWidth(width)
	a.bar.SetWidth(width)
}

// Run starts the dashboard.
func (a *App) Run() error {
	defer a.Close()
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}
