package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/cinedex/internal/catalog"
	"github.com/mmcdole/cinedex/internal/domain"
	"github.com/mmcdole/cinedex/internal/session"
	"github.com/mmcdole/cinedex/internal/tui/components"
)

// Screen is the list or page currently shown
type Screen int

const (
	ScreenTrending Screen = iota
	ScreenPopular
	ScreenFavorites
	ScreenDetail
)

// String returns the tab title for the screen
func (s Screen) String() string {
	switch s {
	case ScreenPopular:
		return "Popular"
	case ScreenFavorites:
		return "Favorites"
	case ScreenDetail:
		return "Details"
	default:
		return "Trending"
	}
}

// ChromeHeight is the lines used by header, tabs, search bar and footer
const ChromeHeight = 6

// Model is the main Bubble Tea model for the application
type Model struct {
	Screen     Screen
	prevScreen Screen
	Ready      bool
	ShowHelp   bool

	// Services
	CatalogSvc *catalog.Service
	SessionSvc *session.Service
	observer   *ChannelObserver

	// Store projections, refreshed on StoreChangedMsg
	view      catalog.Snapshot
	favorites []domain.Movie
	user      *domain.Principal

	// Genre cycling; genreIdx is -1 when no genre is active
	genres   []domain.Genre
	genreIdx int

	// Search
	SearchBar  components.SearchBar
	searchSeq  int
	localQuery string // favorites filter, applied client-side

	// List cursor
	cursor int
	offset int

	// Dimensions
	Width  int
	Height int

	// UI state
	Backdrop     string
	ImageBaseURL string
	StatusMsg    string
	StatusIsErr  bool
	Loading      bool
	SpinnerFrame int
}

// NewModel creates a new application model subscribed to both stores
func NewModel(catalogSvc *catalog.Service, sessionSvc *session.Service) Model {
	obs := NewChannelObserver()
	obs.Watch(catalogSvc, sessionSvc)

	m := Model{
		Screen:       ScreenTrending,
		CatalogSvc:   catalogSvc,
		SessionSvc:   sessionSvc,
		observer:     obs,
		genreIdx:     -1,
		SearchBar:    components.NewSearchBar(),
		ImageBaseURL: domain.DefaultImageBaseURL,
	}
	m.syncStores()
	return m
}

// Close removes the store subscriptions
func (m Model) Close() {
	m.observer.Close()
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.observer.WaitCmd(),
		LoadTrendingCmd(m.CatalogSvc),
		LoadGenresCmd(m.CatalogSvc),
		LoadBackdropCmd(m.CatalogSvc),
		TickCmd(100*time.Millisecond),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case StoreChangedMsg:
		m.syncStores()
		return m, m.observer.WaitCmd()

	case TickMsg:
		m.SpinnerFrame++
		return m, TickCmd(100 * time.Millisecond)

	case TrendingLoadedMsg:
		m.Loading = false
		return m, nil

	case GenresLoadedMsg:
		m.genres = msg.Genres
		return m, nil

	case BackdropMsg:
		m.Backdrop = msg.URL
		return m, nil

	case SearchDueMsg:
		if msg.Seq != m.searchSeq {
			return m, nil // superseded by a later keystroke
		}
		m.Loading = true
		return m, SearchCmd(m.CatalogSvc, msg.Query)

	case SearchDoneMsg:
		m.Loading = false
		if m.view.Searching && m.view.Query == msg.Query {
			return m.setStatus(fmt.Sprintf("%d results for %q", msg.Count, msg.Query), false)
		}
		return m, nil

	case GenreAppliedMsg:
		m.Loading = false
		if msg.Genre.ID == 0 {
			m.genreIdx = -1
			return m.setStatus("Genre filter cleared", false)
		}
		return m.setStatus(fmt.Sprintf("%s: %d movies", msg.Genre.Name, msg.Count), false)

	case PageLoadedMsg:
		m.Loading = false
		if msg.Count == 0 && !m.view.HasMore() {
			return m.setStatus("No more pages", false)
		}
		return m, nil

	case DetailsLoadedMsg:
		m.Loading = false
		if !msg.Found {
			m.Screen = m.prevScreen
			return m.setStatus("Movie details unavailable", true)
		}
		return m, nil

	case FavoriteToggledMsg:
		if msg.Added {
			return m.setStatus("Added "+msg.Title+" to favorites", false)
		}
		return m.setStatus("Removed "+msg.Title+" from favorites", false)

	case LogoutCompleteMsg:
		if msg.Error != nil {
			return m.setStatus("Logout failed: "+msg.Error.Error(), true)
		}
		if m.Screen == ScreenFavorites {
			m.Screen = ScreenTrending
		}
		return m.setStatus("Logged out", false)

	case ErrMsg:
		m.Loading = false
		slog.Error("tui error", "context", msg.Context, "error", msg.Err)
		if errors.Is(msg.Err, domain.ErrNoActiveSession) {
			return m.setStatus("Log in (cinedex login) to keep favorites", true)
		}
		return m.setStatus(msg.Error(), true)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.SearchBar.IsVisible() {
		return m.handleSearchInput(msg)
	}

	if m.ShowHelp {
		m.ShowHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.ShowHelp = true
		return m, nil

	case key.Matches(msg, Keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, Keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, Keys.PageUp):
		m.moveCursor(-m.listHeight())
	case key.Matches(msg, Keys.PageDown):
		m.moveCursor(m.listHeight())
	case key.Matches(msg, Keys.Home):
		m.cursor, m.offset = 0, 0
	case key.Matches(msg, Keys.End):
		m.moveCursor(len(m.rows()))

	case key.Matches(msg, Keys.Enter):
		movie, ok := m.selectedMovie()
		if !ok || m.Screen == ScreenDetail {
			return m, nil
		}
		m.prevScreen = m.Screen
		m.Screen = ScreenDetail
		m.Loading = true
		return m, LoadDetailsCmd(m.CatalogSvc, movie.ID)

	case key.Matches(msg, Keys.Back):
		return m.handleBack()

	case key.Matches(msg, Keys.Trending):
		m.switchScreen(ScreenTrending)
	case key.Matches(msg, Keys.Popular):
		m.switchScreen(ScreenPopular)
		if len(m.view.Popular) == 0 {
			m.Loading = true
			return m, LoadPageCmd(m.CatalogSvc)
		}
	case key.Matches(msg, Keys.Favorites):
		m.switchScreen(ScreenFavorites)

	case key.Matches(msg, Keys.Search):
		if m.Screen == ScreenFavorites {
			m.SearchBar.Show("Filter favorites", m.localQuery)
		} else {
			m.switchScreen(ScreenTrending)
			m.SearchBar.Show("Search", m.view.Query)
		}
		return m, nil

	case key.Matches(msg, Keys.Genre):
		return m.cycleGenre()

	case key.Matches(msg, Keys.SortRating):
		m.CatalogSvc.SetSort(catalog.SortRating)
	case key.Matches(msg, Keys.SortTitle):
		m.CatalogSvc.SetSort(catalog.SortTitle)
	case key.Matches(msg, Keys.SortReleased):
		m.CatalogSvc.SetSort(catalog.SortReleased)

	case key.Matches(msg, Keys.LoadMore):
		if m.Screen != ScreenPopular {
			m.switchScreen(ScreenPopular)
		}
		m.Loading = true
		return m, LoadPageCmd(m.CatalogSvc)

	case key.Matches(msg, Keys.ToggleFavorite):
		movie, ok := m.selectedMovie()
		if !ok {
			return m, nil
		}
		return m, ToggleFavoriteCmd(m.SessionSvc, movie)

	case key.Matches(msg, Keys.Refresh):
		m.Loading = true
		return m, LoadTrendingCmd(m.CatalogSvc)

	case key.Matches(msg, Keys.Logout):
		return m, LogoutCmd(m.SessionSvc)
	}

	return m, nil
}

func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var event components.SearchEvent
	m.SearchBar, cmd, event = m.SearchBar.Update(msg)

	if m.Screen == ScreenFavorites {
		switch event {
		case components.SearchChanged, components.SearchSubmitted:
			m.localQuery = m.SearchBar.Value()
			m.cursor, m.offset = 0, 0
		case components.SearchCancelled:
			m.localQuery = ""
		}
		return m, cmd
	}

	switch event {
	case components.SearchChanged:
		m.searchSeq++
		return m, tea.Batch(cmd, DebounceSearchCmd(m.searchSeq, m.SearchBar.Value()))
	case components.SearchSubmitted:
		m.searchSeq++
		m.cursor, m.offset = 0, 0
		m.Loading = true
		return m, SearchCmd(m.CatalogSvc, m.SearchBar.Value())
	case components.SearchCancelled:
		m.searchSeq++
		return m, ClearSearchCmd(m.CatalogSvc)
	}
	return m, cmd
}

func (m Model) handleBack() (tea.Model, tea.Cmd) {
	switch {
	case m.Screen == ScreenDetail:
		m.Screen = m.prevScreen
		m.CatalogSvc.ClearSelection()
		return m, nil
	case m.Screen == ScreenFavorites && m.localQuery != "":
		m.localQuery = ""
		return m, nil
	case m.view.Searching:
		m.searchSeq++
		return m, ClearSearchCmd(m.CatalogSvc)
	case m.view.GenreID > 0 && m.genreIdx >= 0 && m.genreIdx < len(m.genres):
		// re-selecting the active genre toggles it off
		return m, FilterGenreCmd(m.CatalogSvc, m.genres[m.genreIdx])
	}
	return m, nil
}

// cycleGenre advances to the next genre; past the last one the filter turns off
func (m Model) cycleGenre() (tea.Model, tea.Cmd) {
	if len(m.genres) == 0 {
		return m.setStatus("Genres not loaded yet", true)
	}
	m.switchScreen(ScreenTrending)
	m.Loading = true

	next := m.genreIdx + 1
	if next >= len(m.genres) {
		current := m.genres[m.genreIdx]
		m.genreIdx = -1
		return m, FilterGenreCmd(m.CatalogSvc, current)
	}
	m.genreIdx = next
	return m, FilterGenreCmd(m.CatalogSvc, m.genres[next])
}

// syncStores re-reads both stores
func (m *Model) syncStores() {
	m.view = m.CatalogSvc.View()
	m.favorites = m.SessionSvc.Favorites()
	if p, ok := m.SessionSvc.Current(); ok {
		m.user = p
	} else {
		m.user = nil
	}
	m.clampCursor()
}

// rows returns the movies listed on the current screen
func (m Model) rows() []domain.Movie {
	switch m.Screen {
	case ScreenPopular:
		return catalog.Sort(m.view.Popular, m.view.Sort)
	case ScreenFavorites:
		return catalog.Sort(catalog.Filter(m.favorites, m.localQuery), m.view.Sort)
	case ScreenDetail:
		return m.view.Similar
	default:
		return m.view.Displayed()
	}
}

// selectedMovie returns the movie under the cursor, or the detail page's movie
func (m Model) selectedMovie() (domain.Movie, bool) {
	if m.Screen == ScreenDetail {
		if m.view.Selected == nil {
			return domain.Movie{}, false
		}
		return *m.view.Selected, true
	}
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return domain.Movie{}, false
	}
	return rows[m.cursor], true
}

func (m *Model) switchScreen(s Screen) {
	if m.Screen == s {
		return
	}
	if m.Screen == ScreenDetail {
		m.CatalogSvc.ClearSelection()
	}
	m.Screen = s
	m.cursor, m.offset = 0, 0
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m *Model) clampCursor() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

func (m Model) listHeight() int {
	return max(m.Height-ChromeHeight, 1)
}

func (m Model) setStatus(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.StatusMsg = text
	m.StatusIsErr = isErr
	return m, ClearStatusCmd(4 * time.Second)
}
