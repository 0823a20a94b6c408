// Package tui is the terminal viewer for archived build results: a ranked
// list on the left and the selected result's messages and failed tests on
// the right.
package tui

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"decent-ci/src/archive"
)

// LoadStatus tracks whether results have arrived.
type LoadStatus int

const (
	StatusLoading LoadStatus = iota
	StatusReady
)

// ResultsMsg replaces the listed results.
type ResultsMsg struct {
	Entries []archive.Entry
}

// errMsg reports a failed listing; the previous results stay on screen.
type errMsg struct{ err error }

type refreshTickMsg time.Time

// MainModel is the Bubble Tea model of the results viewer.
type MainModel struct {
	ctx     context.Context
	lister  archive.Lister
	filter  archive.Filter
	refresh time.Duration

	items          []Item
	listView       View
	detailViewport viewport.Model
	header         Header
	progress       ProgressModel
	styles         *StyleConfig

	width, height int
	ready         bool
	status        LoadStatus
	err           error

	detailFocused bool
	searchMode    bool
	searchQuery   string
	statusFilter  StatusFilter
	selectedPath  string
}

// NewMainModel creates a viewer listing filter from lister. A positive
// refresh reloads the list periodically.
func NewMainModel(ctx context.Context, lister archive.Lister, filter archive.Filter, refresh time.Duration) MainModel {
	styles := DefaultStyles()
	return MainModel{
		ctx:            ctx,
		lister:         lister,
		filter:         filter,
		refresh:        refresh,
		listView:       NewView(styles),
		detailViewport: viewport.New(0, 0),
		header:         NewHeader(styles),
		progress:       NewProgressModel(),
		styles:         styles,
	}
}

// Run shows the viewer until the user quits or ctx is done.
func Run(ctx context.Context, lister archive.Lister, filter archive.Filter, refresh time.Duration) error {
	p := tea.NewProgram(NewMainModel(ctx, lister, filter, refresh), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init starts the first load.
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(m.load(), m.progress.Tick())
}

func (m MainModel) load() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.lister.List(m.ctx, m.filter)
		if err != nil {
			return errMsg{err}
		}
		return ResultsMsg{Entries: entries}
	}
}

func (m MainModel) scheduleRefresh() tea.Cmd {
	if m.refresh <= 0 {
		return nil
	}
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

// Update handles messages and updates the model state.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeComponents()
		return m, nil

	case ResultsMsg:
		m.err = nil
		m.setEntries(msg.Entries)
		if len(msg.Entries) == 0 {
			m.progress, _ = m.progress.Update(ProgressMsg{Stage: StageComplete})
		}
		return m, m.scheduleRefresh()

	case errMsg:
		m.err = msg.err
		m.progress, _ = m.progress.Update(ProgressMsg{Stage: StageComplete})
		return m, m.scheduleRefresh()

	case refreshTickMsg:
		return m, m.load()

	case ProgressMsg, spinner.TickMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.updateSearch(msg)
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			if m.listView.Len() > 0 {
				m.detailFocused = true
			}
			return m, nil
		case "esc":
			m.detailFocused = false
			return m, nil
		case "r":
			return m, m.load()
		}

		if m.detailFocused {
			var cmd tea.Cmd
			m.detailViewport, cmd = m.detailViewport.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "tab":
			m.header.CycleFilter()
			m.applyFilter()
			return m, nil
		case "0", "1", "2":
			m.statusFilter = StatusFilter(msg.String()[0] - '0')
			m.header.SetStatusFilter(m.statusFilter)
			m.applyFilter()
			return m, nil
		case "/":
			m.searchMode = true
			m.header.SetSearch(m.searchQuery, true)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.listView, cmd = m.listView.Update(msg)
	m.syncSelection()
	return m, cmd
}

func (m MainModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searchQuery = ""
		m.searchMode = false
	case tea.KeyEnter:
		m.searchMode = false
	case tea.KeyBackspace:
		if r := []rune(m.searchQuery); len(r) > 0 {
			m.searchQuery = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.searchQuery += string(msg.Runes)
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	m.header.SetSearch(m.searchQuery, m.searchMode)
	m.applyFilter()
	return m, nil
}

// syncSelection refreshes the detail panel when the selection moved.
func (m *MainModel) syncSelection() {
	item, ok := m.listView.GetSelectedItem()
	if !ok || item.Entry.Path == m.selectedPath {
		return
	}
	m.selectedPath = item.Entry.Path
	m.updateDetailContent(item)
}

// setEntries ranks entries: final failures first, then pending, then the
// rest, newest first within each group.
func (m *MainModel) setEntries(entries []archive.Entry) {
	items := make([]Item, len(entries))
	for i, e := range entries {
		items[i] = Item{Entry: e}
	}
	group := func(it Item) int {
		switch {
		case it.Failing():
			return 0
		case it.Pending():
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return group(items[i]) < group(items[j])
	})

	repoSet := map[string]bool{}
	failing := 0
	for i := range items {
		items[i].Rank = i + 1
		repoSet[items[i].Repository()] = true
		if items[i].Failing() {
			failing++
		}
	}
	repos := make([]string, 0, len(repoSet))
	for r := range repoSet {
		repos = append(repos, r)
	}
	sort.Strings(repos)

	m.items = items
	m.status = StatusReady
	m.header.SetRepositories(repos)
	m.header.SetStatus(fmt.Sprintf("%d results · %d failing", len(items), failing))
	m.selectedPath = ""
	m.applyFilter()
	m.syncSelection()
}
