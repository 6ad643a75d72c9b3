package catalog

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/mmcdole/cinedex/internal/domain"
	"golang.org/x/text/language"
)

// DefaultMinQueryLength is the shortest query sent to the remote search
const DefaultMinQueryLength = 3

// Snapshot is an immutable copy of the catalog working sets
type Snapshot struct {
	Trending []domain.Movie
	Popular  []domain.Movie // discover pages, appended by LoadMore
	Filtered []domain.Movie // search or genre results
	Selected *domain.Movie
	Similar  []domain.Movie

	Searching bool
	Query     string
	GenreID   int // 0 when no genre filter is active

	CurrentPage int
	TotalPages  int

	Sort SortSpec
}

// Filtering reports whether the filtered set is displayed instead of trending
func (s Snapshot) Filtering() bool {
	return s.Searching || s.GenreID > 0
}

// Displayed returns the working set for the current mode with the active sort applied
func (s Snapshot) Displayed() []domain.Movie {
	if s.Filtering() {
		return Sort(s.Filtered, s.Sort)
	}
	return Sort(s.Trending, s.Sort)
}

// HasMore reports whether LoadMore would fetch another page
func (s Snapshot) HasMore() bool {
	return s.CurrentPage < s.TotalPages
}

// Service mediates reads from the remote catalog and holds the working sets.
// Remote failures are logged and degrade to empty results.
type Service struct {
	client domain.CatalogClient
	logger *slog.Logger
	events domain.Broadcaster

	minQueryLength int
	imageBaseURL   string
	locale         language.Tag
	intN           func(n int) int

	mu    sync.Mutex
	state Snapshot
	gen   uint64 // bumped by every search/genre request
	// detailGen orders FetchMovieDetails calls
	detailGen uint64

	genresMu sync.Mutex
	genres   []domain.Genre
}

// Option customizes a Service
type Option func(*Service)

// WithMinQueryLength sets the shortest query that reaches the remote search
func WithMinQueryLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minQueryLength = n
		}
	}
}

// WithImageBaseURL sets the image CDN root used by RandomBackdrop
func WithImageBaseURL(base string) Option {
	return func(s *Service) {
		if base != "" {
			s.imageBaseURL = base
		}
	}
}

// WithLocale sets the collation locale for title sorting
func WithLocale(tag language.Tag) Option {
	return func(s *Service) { s.locale = tag }
}

// WithRandom replaces the random index source used by RandomBackdrop
func WithRandom(intN func(n int) int) Option {
	return func(s *Service) {
		if intN != nil {
			s.intN = intN
		}
	}
}

// NewService creates a new catalog service
func NewService(client domain.CatalogClient, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		client:         client,
		logger:         logger,
		minQueryLength: DefaultMinQueryLength,
		imageBaseURL:   domain.DefaultImageBaseURL,
		locale:         language.Und,
		intN:           rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Sort.Locale = s.locale
	return s
}

// Subscribe registers fn to run after every state change
func (s *Service) Subscribe(fn domain.Listener) (unsubscribe func()) {
	return s.events.Subscribe(fn)
}

// View returns a copy of the current state
func (s *Service) View() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() Snapshot {
	v := s.state
	v.Trending = slices.Clone(s.state.Trending)
	v.Popular = slices.Clone(s.state.Popular)
	v.Filtered = slices.Clone(s.state.Filtered)
	v.Similar = slices.Clone(s.state.Similar)
	if s.state.Selected != nil {
		sel := *s.state.Selected
		v.Selected = &sel
	}
	return v
}

// update applies fn under the lock and notifies subscribers after unlocking
func (s *Service) update(fn func(st *Snapshot)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.events.Notify()
}

// === Trending and popular ===

// FetchTrending replaces the trending set with today's trending movies
func (s *Service) FetchTrending(ctx context.Context) []domain.Movie {
	movies, err := s.client.Trending(ctx)
	if err != nil {
		s.logger.Error("failed to fetch trending", "error", err)
		movies = []domain.Movie{}
	}
	s.logger.Debug("fetched trending", "count", len(movies))

	s.update(func(st *Snapshot) { st.Trending = movies })
	return slices.Clone(movies)
}

// Refresh reloads trending unless a search or genre filter is active
func (s *Service) Refresh(ctx context.Context) {
	if s.View().Filtering() {
		return
	}
	s.FetchTrending(ctx)
}

// FetchCatalogPage loads one page of the popularity-sorted catalog.
// Page 1 replaces the popular set, later pages append.
func (s *Service) FetchCatalogPage(ctx context.Context, page int) []domain.Movie {
	page = max(page, 1)

	result, err := s.client.Discover(ctx, domain.DiscoverQuery{Page: page})
	if err != nil {
		s.logger.Error("failed to fetch catalog page", "error", err, "page", page)
		if page == 1 {
			s.update(func(st *Snapshot) {
				st.Popular = []domain.Movie{}
				st.CurrentPage, st.TotalPages = 0, 0
			})
		}
		return []domain.Movie{}
	}

	applied := true
	s.mu.Lock()
	switch {
	case page == 1:
		s.state.Popular = result.Movies
	case page == s.state.CurrentPage+1:
		s.state.Popular = append(slices.Clone(s.state.Popular), result.Movies...)
	default:
		// a concurrent LoadMore already advanced past this page
		applied = false
	}
	if applied {
		s.state.CurrentPage = page
		s.state.TotalPages = max(result.TotalPages, page)
	}
	s.mu.Unlock()

	if !applied {
		s.logger.Debug("discarding out-of-order catalog page", "page", page)
		return []domain.Movie{}
	}
	s.logger.Debug("fetched catalog page", "page", page, "totalPages", result.TotalPages, "count", len(result.Movies))
	s.events.Notify()
	return slices.Clone(result.Movies)
}

// LoadMore fetches the next catalog page while CurrentPage < TotalPages
func (s *Service) LoadMore(ctx context.Context) []domain.Movie {
	v := s.View()
	if v.CurrentPage == 0 {
		return s.FetchCatalogPage(ctx, 1)
	}
	if !v.HasMore() {
		return []domain.Movie{}
	}
	return s.FetchCatalogPage(ctx, v.CurrentPage+1)
}

// === Search and genre filter ===

// Search runs a remote title search, narrowed client-side to the active genre.
// Queries shorter than the minimum length leave search mode.
func (s *Service) Search(ctx context.Context, query string) []domain.Movie {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < s.minQueryLength {
		s.ClearSearch(ctx)
		return []domain.Movie{}
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	genreID := s.state.GenreID
	s.mu.Unlock()

	return s.runSearch(ctx, gen, query, genreID)
}

func (s *Service) runSearch(ctx context.Context, gen uint64, query string, genreID int) []domain.Movie {
	page, err := s.client.SearchMovies(ctx, query, 1)
	movies := page.Movies
	if err != nil {
		s.logger.Error("search failed", "error", err, "query", query)
		movies = []domain.Movie{}
	}
	if genreID > 0 {
		movies = FilterGenre(movies, genreID)
	}

	if !s.applyFiltered(gen, func(st *Snapshot) {
		st.Filtered = movies
		st.Searching = true
		st.Query = query
	}) {
		s.logger.Debug("discarding stale search result", "query", query)
		return []domain.Movie{}
	}
	s.logger.Debug("search complete", "query", query, "genreID", genreID, "results", len(movies))
	return slices.Clone(movies)
}

// FilterByGenre shows movies tagged genreID. Selecting the active genre again
// turns the filter off and restores the previous view.
func (s *Service) FilterByGenre(ctx context.Context, genreID int) []domain.Movie {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	toggleOff := genreID <= 0 || s.state.GenreID == genreID
	searching, query := s.state.Searching, s.state.Query
	s.mu.Unlock()

	if toggleOff {
		s.logger.Debug("clearing genre filter")
		s.applyFiltered(gen, func(st *Snapshot) {
			st.GenreID = 0
			if !searching {
				st.Filtered = nil
			}
		})
		if searching {
			return s.runSearch(ctx, gen, query, 0)
		}
		return s.FetchTrending(ctx)
	}

	if searching {
		s.applyFiltered(gen, func(st *Snapshot) { st.GenreID = genreID })
		return s.runSearch(ctx, gen, query, genreID)
	}
	return s.runGenre(ctx, gen, genreID)
}

func (s *Service) runGenre(ctx context.Context, gen uint64, genreID int) []domain.Movie {
	page, err := s.client.Discover(ctx, domain.DiscoverQuery{Page: 1, GenreID: genreID})
	movies := page.Movies
	if err != nil {
		s.logger.Error("genre filter failed", "error", err, "genreID", genreID)
		movies = []domain.Movie{}
	}

	if !s.applyFiltered(gen, func(st *Snapshot) {
		st.Filtered = movies
		st.GenreID = genreID
	}) {
		s.logger.Debug("discarding stale genre result", "genreID", genreID)
		return []domain.Movie{}
	}
	s.logger.Debug("genre filter applied", "genreID", genreID, "results", len(movies))
	return slices.Clone(movies)
}

// applyFiltered runs fn only if gen is still the newest request
func (s *Service) applyFiltered(gen uint64, fn func(st *Snapshot)) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	fn(&s.state)
	s.mu.Unlock()
	s.events.Notify()
	return true
}

// ClearSearch leaves search mode. An active genre filter is kept and
// reloaded, otherwise trending is restored.
func (s *Service) ClearSearch(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	genreID := s.state.GenreID
	wasSearching := s.state.Searching
	s.mu.Unlock()

	s.applyFiltered(gen, func(st *Snapshot) {
		st.Searching = false
		st.Query = ""
		if genreID == 0 {
			st.Filtered = nil
		}
	})

	if genreID > 0 {
		if wasSearching {
			s.runGenre(ctx, gen, genreID)
		}
		return
	}
	s.FetchTrending(ctx)
}

// Reset drops both search and genre filter and restores trending
func (s *Service) Reset(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.applyFiltered(gen, func(st *Snapshot) {
		st.Searching = false
		st.Query = ""
		st.GenreID = 0
		st.Filtered = nil
	})
	s.FetchTrending(ctx)
}

// === Details ===

// FetchMovieDetails loads the full record for id and makes it the selection
func (s *Service) FetchMovieDetails(ctx context.Context, id int) (*domain.Movie, bool) {
	s.mu.Lock()
	s.detailGen++
	gen := s.detailGen
	s.mu.Unlock()

	movie, err := s.client.MovieDetails(ctx, id)
	if err != nil {
		s.logger.Error("failed to fetch movie details", "error", err, "movieID", id)
		movie = nil
	}

	s.mu.Lock()
	if gen != s.detailGen {
		s.mu.Unlock()
		s.logger.Debug("discarding stale movie details", "movieID", id)
		return nil, false
	}
	s.state.Selected = movie
	s.state.Similar = nil
	s.mu.Unlock()
	s.events.Notify()

	if movie == nil {
		return nil, false
	}
	out := *movie
	return &out, true
}

// FetchSimilar loads up to six movies similar to id
func (s *Service) FetchSimilar(ctx context.Context, id int) []domain.Movie {
	movies, err := s.client.Similar(ctx, id)
	if err != nil {
		s.logger.Error("failed to fetch similar movies", "error", err, "movieID", id)
		movies = []domain.Movie{}
	}

	s.mu.Lock()
	applied := s.state.Selected != nil && s.state.Selected.ID == id
	if applied {
		s.state.Similar = movies
	}
	s.mu.Unlock()
	if applied {
		s.events.Notify()
	}
	return slices.Clone(movies)
}

// ClearSelection drops the selected movie
func (s *Service) ClearSelection() {
	s.mu.Lock()
	s.detailGen++
	s.mu.Unlock()
	s.update(func(st *Snapshot) {
		st.Selected = nil
		st.Similar = nil
	})
}

// FetchGenres returns the genre list, fetched once per service
func (s *Service) FetchGenres(ctx context.Context) []domain.Genre {
	s.genresMu.Lock()
	defer s.genresMu.Unlock()

	if s.genres != nil {
		return append([]domain.Genre(nil), s.genres...)
	}
	genres, err := s.client.Genres(ctx)
	if err != nil {
		s.logger.Error("failed to fetch genres", "error", err)
		return []domain.Genre{}
	}
	s.genres = genres
	return append([]domain.Genre(nil), genres...)
}

// RandomBackdrop returns the backdrop URL of a random trending movie,
// falling back to its poster.
func (s *Service) RandomBackdrop(ctx context.Context) (string, bool) {
	trending := s.View().Trending
	if len(trending) == 0 {
		trending = s.FetchTrending(ctx)
	}

	var candidates []string
	for _, m := range trending {
		if u := m.BackdropURL(s.imageBaseURL, domain.ImageSizeOriginal); u != "" {
			candidates = append(candidates, u)
		} else if u := m.PosterURL(s.imageBaseURL, domain.ImageSizeOriginal); u != "" {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[s.intN(len(candidates))], true
}

// === Sorting ===

// SetSort picks the sort field for the displayed set and returns the new spec
func (s *Service) SetSort(field SortField) SortSpec {
	var spec SortSpec
	s.update(func(st *Snapshot) {
		st.Sort = st.Sort.Toggle(field)
		spec = st.Sort
	})
	s.logger.Debug("sort changed", "field", spec.Field.String(), "direction", spec.Direction.String())
	return spec
}

// SortSpec returns the active sort
func (s *Service) SortSpec() SortSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Sort
}
