package tui

import "github.com/mmcdole/cinedex/internal/domain"

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// StoreChangedMsg signals that the catalog or session store changed.
// The model re-reads both stores instead of carrying state in the message.
type StoreChangedMsg struct{}

// TrendingLoadedMsg signals that a trending refresh finished (or was skipped)
type TrendingLoadedMsg struct{}

// GenresLoadedMsg carries the genre list used by genre cycling
type GenresLoadedMsg struct {
	Genres []domain.Genre
}

// SearchDueMsg fires after the search debounce delay
type SearchDueMsg struct {
	Seq   int
	Query string
}

// SearchDoneMsg signals that a remote search finished
type SearchDoneMsg struct {
	Query string
	Count int
}

// GenreAppliedMsg signals that a genre filter was applied or cleared
type GenreAppliedMsg struct {
	Genre domain.Genre // zero when cleared
	Count int
}

// DetailsLoadedMsg signals that the selected movie's details arrived
type DetailsLoadedMsg struct {
	MovieID int
	Found   bool
}

// PageLoadedMsg signals that a popular catalog page was appended
type PageLoadedMsg struct {
	Count int
}

// FavoriteToggledMsg signals a favorite add or remove
type FavoriteToggledMsg struct {
	Title string
	Added bool
}

// BackdropMsg carries the header backdrop URL
type BackdropMsg struct {
	URL string
}

// LogoutCompleteMsg signals that the session was cleared
type LogoutCompleteMsg struct {
	Error error
}

// ClearStatusMsg clears the status line
type ClearStatusMsg struct{}

// TickMsg advances the spinner
type TickMsg struct{}
