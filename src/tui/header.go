package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// allRepositories is the repository filter that matches everything.
const allRepositories = "ALL"

// Header represents the top status bar component.
type Header struct {
	projectStatus  string
	selectedFilter string
	repositories   []string
	statusFilter   StatusFilter
	searchQuery    string
	searchMode     bool
	styles         *StyleConfig
}

// NewHeader creates a header with the given styles.
func NewHeader(styles *StyleConfig) Header {
	return Header{
		selectedFilter: allRepositories,
		styles:         styles,
	}
}

// SetStatus sets the summary text on the left of the bar.
func (h *Header) SetStatus(status string) {
	h.projectStatus = status
}

// SetRepositories sets the repositories the filter cycles through. A
// selected repository that disappeared resets the filter.
func (h *Header) SetRepositories(repos []string) {
	h.repositories = repos
	for _, r := range repos {
		if r == h.selectedFilter {
			return
		}
	}
	h.selectedFilter = allRepositories
}

// GetFilter returns the current repository filter
func (h Header) GetFilter() string {
	return h.selectedFilter
}

// CycleFilter cycles to the next repository
func (h *Header) CycleFilter() {
	filters := append([]string{allRepositories}, h.repositories...)
	currentIndex := 0
	for i, f := range filters {
		if f == h.selectedFilter {
			currentIndex = i
			break
		}
	}
	h.selectedFilter = filters[(currentIndex+1)%len(filters)]
}

// SetStatusFilter sets the status filter shown in the bar.
func (h *Header) SetStatusFilter(f StatusFilter) {
	h.statusFilter = f
}

// SetSearch updates the search state
func (h *Header) SetSearch(query string, mode bool) {
	h.searchQuery = query
	h.searchMode = mode
}

// Render renders the header
func (h Header) Render(width int) string {
	sectionStyle := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 2)

	status := sectionStyle.Render(h.projectStatus)
	filter := sectionStyle.Render(fmt.Sprintf("Repo: %s", h.selectedFilter))
	shown := sectionStyle.Render(fmt.Sprintf("Show: %s", h.statusFilter))

	var searchText string
	switch {
	case h.searchMode:
		searchText = fmt.Sprintf("Search: %s█", h.searchQuery)
	case h.searchQuery != "":
		searchText = fmt.Sprintf("Search: %s", h.searchQuery)
	default:
		searchText = "[/] to search"
	}

	searchStyle := lipgloss.NewStyle().
		Foreground(h.styles.TextSecondary).
		Padding(0, 2)
	if h.searchMode {
		searchStyle = searchStyle.Foreground(h.styles.PrimaryBlue)
	}
	search := searchStyle.Render(searchText)

	leftSection := lipgloss.JoinHorizontal(lipgloss.Left, status, filter, shown, search)
	leftSection = Truncate(leftSection, width, false)

	headerStyle := lipgloss.NewStyle().
		Background(h.styles.DarkBackground).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.BorderColor).
		Width(width)

	spacer := lipgloss.NewStyle().Width(max(0, width-lipgloss.Width(leftSection))).Render("")
	return headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSection, spacer))
}
