package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/cinedex/internal/catalog"
	"github.com/mmcdole/cinedex/internal/domain"
	"github.com/mmcdole/cinedex/internal/session"
)

// Command factories for async operations

const requestTimeout = 30 * time.Second

// searchDebounce is the pause after the last keystroke before searching
const searchDebounce = 400 * time.Millisecond

// LoadTrendingCmd refreshes the trending set unless a filter is active
func LoadTrendingCmd(svc *catalog.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		svc.Refresh(ctx)
		return TrendingLoadedMsg{}
	}
}

// LoadPageCmd loads the next popular catalog page
func LoadPageCmd(svc *catalog.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return PageLoadedMsg{Count: len(svc.LoadMore(ctx))}
	}
}

// LoadGenresCmd loads the genre list
func LoadGenresCmd(svc *catalog.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return GenresLoadedMsg{Genres: svc.FetchGenres(ctx)}
	}
}

// LoadBackdropCmd picks a random trending backdrop for the header
func LoadBackdropCmd(svc *catalog.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		url, _ := svc.RandomBackdrop(ctx)
		return BackdropMsg{URL: url}
	}
}

// DebounceSearchCmd fires SearchDueMsg after the debounce delay
func DebounceSearchCmd(seq int, query string) tea.Cmd {
	return tea.Tick(searchDebounce, func(time.Time) tea.Msg {
		return SearchDueMsg{Seq: seq, Query: query}
	})
}

// SearchCmd runs a remote search. Short queries restore the unfiltered view.
func SearchCmd(svc *catalog.Service, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		results := svc.Search(ctx, query)
		return SearchDoneMsg{Query: query, Count: len(results)}
	}
}

// ClearSearchCmd leaves search mode
func ClearSearchCmd(svc *catalog.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		svc.ClearSearch(ctx)
		return nil
	}
}

// FilterGenreCmd applies genre, or clears the filter when genre is already active
func FilterGenreCmd(svc *catalog.Service, genre domain.Genre) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		results := svc.FilterByGenre(ctx, genre.ID)
		if svc.View().GenreID != genre.ID {
			return GenreAppliedMsg{Count: len(results)}
		}
		return GenreAppliedMsg{Genre: genre, Count: len(results)}
	}
}

// LoadDetailsCmd loads details for id, then its similar titles
func LoadDetailsCmd(svc *catalog.Service, id int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if _, ok := svc.FetchMovieDetails(ctx, id); !ok {
			return DetailsLoadedMsg{MovieID: id}
		}
		svc.FetchSimilar(ctx, id)
		return DetailsLoadedMsg{MovieID: id, Found: true}
	}
}

// ToggleFavoriteCmd adds or removes movie from the current principal's favorites
func ToggleFavoriteCmd(svc *session.Service, movie domain.Movie) tea.Cmd {
	return func() tea.Msg {
		added, err := svc.ToggleFavorite(movie)
		if err != nil {
			return ErrMsg{Err: err, Context: "toggling favorite"}
		}
		return FavoriteToggledMsg{Title: movie.Title, Added: added}
	}
}

// LogoutCmd clears the current session
func LogoutCmd(svc *session.Service) tea.Cmd {
	return func() tea.Msg {
		return LogoutCompleteMsg{Error: svc.Logout()}
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
