package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/cinedex/internal/tui/styles"
)

// SearchEvent is what the search bar did with the last message
type SearchEvent int

const (
	SearchNone      SearchEvent = iota
	SearchChanged               // query text changed
	SearchSubmitted             // enter pressed
	SearchCancelled             // esc pressed, bar hidden
)

// SearchBar is a single-line query input shown above the list
type SearchBar struct {
	visible bool
	prompt  string
	input   textinput.Model
}

// NewSearchBar creates a new search bar
func NewSearchBar() SearchBar {
	ti := textinput.New()
	ti.Placeholder = "Title..."
	ti.CharLimit = 100
	ti.Width = 40
	ti.Prompt = ""
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle

	return SearchBar{
		prompt: "Search",
		input:  ti,
	}
}

// Show displays the bar with a prompt, keeping any previous query
func (b *SearchBar) Show(prompt, value string) {
	b.visible = true
	b.prompt = prompt
	b.input.SetValue(value)
	b.input.CursorEnd()
	b.input.Focus()
}

// Hide dismisses the bar
func (b *SearchBar) Hide() {
	b.visible = false
	b.input.Blur()
}

// IsVisible returns whether the bar is shown
func (b SearchBar) IsVisible() bool {
	return b.visible
}

// Value returns the current query
func (b SearchBar) Value() string {
	return b.input.Value()
}

// Update handles input events
func (b SearchBar) Update(msg tea.Msg) (SearchBar, tea.Cmd, SearchEvent) {
	if !b.visible {
		return b, nil, SearchNone
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			b.input.Blur()
			b.visible = false
			return b, nil, SearchSubmitted
		case "esc":
			b.Hide()
			return b, nil, SearchCancelled
		}
	}

	before := b.input.Value()
	var cmd tea.Cmd
	b.input, cmd = b.input.Update(msg)
	if b.input.Value() != before {
		return b, cmd, SearchChanged
	}
	return b, cmd, SearchNone
}

// View renders the search bar
func (b SearchBar) View() string {
	if !b.visible {
		return ""
	}
	return styles.FilterPromptStyle.Render(b.prompt+": ") + b.input.View()
}
