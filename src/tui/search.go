package tui

import (
	"strings"
)

// StatusFilter narrows the list by result status.
type StatusFilter int

const (
	ShowAll StatusFilter = iota
	ShowFailing
	ShowPassing
)

func (f StatusFilter) String() string {
	switch f {
	case ShowFailing:
		return "failing"
	case ShowPassing:
		return "passing"
	default:
		return "all"
	}
}

func (f StatusFilter) keep(item Item) bool {
	switch f {
	case ShowFailing:
		return item.Failing()
	case ShowPassing:
		return !item.Pending() && !item.Failing()
	default:
		return true
	}
}

// applyFilter filters items by repository, status and search query.
func (m *MainModel) applyFilter() {
	repo := m.header.GetFilter()
	query := strings.ToLower(m.searchQuery)

	var filtered []Item
	for _, item := range m.items {
		if repo != allRepositories && item.Repository() != repo {
			continue
		}
		if !m.statusFilter.keep(item) {
			continue
		}
		if query != "" && !item.matches(query) {
			continue
		}
		filtered = append(filtered, item)
	}

	m.listView.SetItems(filtered)
	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		m.updateDetailContent(selectedItem)
	} else {
		m.detailViewport.SetContent("")
	}
}
