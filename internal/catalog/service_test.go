package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mmcdole/cinedex/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOffline = fmt.Errorf("%w: offline", domain.ErrRemoteFetchFailed)

// fakeClient is an in-memory domain.CatalogClient
type fakeClient struct {
	mu sync.Mutex

	trending []domain.Movie
	pages    []domain.MoviePage // discover pages, index = page-1
	byGenre  map[int][]domain.Movie
	search   map[string][]domain.Movie
	details  map[int]*domain.Movie
	similar  map[int][]domain.Movie
	genres   []domain.Genre

	fail    bool
	calls   map[string]int
	started chan string              // receives search queries as they begin
	gates   map[string]chan struct{} // search queries block until closed
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		byGenre: map[int][]domain.Movie{},
		search:  map[string][]domain.Movie{},
		details: map[int]*domain.Movie{},
		similar: map[int][]domain.Movie{},
		calls:   map[string]int{},
		gates:   map[string]chan struct{}{},
	}
}

func (f *fakeClient) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if f.fail {
		return errOffline
	}
	return nil
}

func (f *fakeClient) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeClient) Trending(ctx context.Context) ([]domain.Movie, error) {
	if err := f.record("trending"); err != nil {
		return nil, err
	}
	return f.trending, nil
}

func (f *fakeClient) Discover(ctx context.Context, q domain.DiscoverQuery) (domain.MoviePage, error) {
	if err := f.record("discover"); err != nil {
		return domain.MoviePage{}, err
	}
	if q.GenreID > 0 {
		return domain.MoviePage{Page: 1, TotalPages: 1, Movies: f.byGenre[q.GenreID]}, nil
	}
	if q.Page < 1 || q.Page > len(f.pages) {
		return domain.MoviePage{Page: q.Page, TotalPages: len(f.pages)}, nil
	}
	return f.pages[q.Page-1], nil
}

func (f *fakeClient) SearchMovies(ctx context.Context, query string, page int) (domain.MoviePage, error) {
	if f.started != nil {
		f.started <- query
	}
	f.mu.Lock()
	gate := f.gates[query]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err := f.record("search"); err != nil {
		return domain.MoviePage{}, err
	}
	return domain.MoviePage{Page: 1, TotalPages: 1, Movies: f.search[query]}, nil
}

func (f *fakeClient) MovieDetails(ctx context.Context, id int) (*domain.Movie, error) {
	if err := f.record("details"); err != nil {
		return nil, err
	}
	m, ok := f.details[id]
	if !ok {
		return nil, fmt.Errorf("%w: %w", domain.ErrRemoteFetchFailed, domain.ErrMovieNotFound)
	}
	return m, nil
}

func (f *fakeClient) Similar(ctx context.Context, id int) ([]domain.Movie, error) {
	if err := f.record("similar"); err != nil {
		return nil, err
	}
	return f.similar[id], nil
}

func (f *fakeClient) Genres(ctx context.Context) ([]domain.Genre, error) {
	if err := f.record("genres"); err != nil {
		return nil, err
	}
	return f.genres, nil
}

func movie(id int, title string, rating float64, date string, genres ...int) domain.Movie {
	return domain.Movie{ID: id, Title: title, VoteAverage: rating, ReleaseDate: date, GenreIDs: genres}
}

func ids(movies []domain.Movie) []int {
	out := make([]int, len(movies))
	for i, m := range movies {
		out[i] = m.ID
	}
	return out
}

func TestFetchTrending(t *testing.T) {
	fc := newFakeClient()
	fc.trending = []domain.Movie{movie(1, "A", 7, ""), movie(2, "B", 8, "")}
	svc := NewService(fc, nil)

	var notified int
	svc.Subscribe(func() { notified++ })

	got := svc.FetchTrending(context.Background())
	assert.Equal(t, []int{1, 2}, ids(got))
	assert.Equal(t, []int{1, 2}, ids(svc.View().Displayed()))
	assert.Equal(t, 1, notified)
}

func TestFailuresDegradeToEmpty(t *testing.T) {
	fc := newFakeClient()
	fc.fail = true
	svc := NewService(fc, nil)
	ctx := context.Background()

	assert.Empty(t, svc.FetchTrending(ctx))
	assert.Empty(t, svc.FetchCatalogPage(ctx, 1))
	assert.Empty(t, svc.Search(ctx, "matrix"))
	assert.Empty(t, svc.FilterByGenre(ctx, 28))
	assert.Empty(t, svc.FetchSimilar(ctx, 1))
	assert.Empty(t, svc.FetchGenres(ctx))

	m, ok := svc.FetchMovieDetails(ctx, 550)
	assert.False(t, ok)
	assert.Nil(t, m)

	_, ok = svc.RandomBackdrop(ctx)
	assert.False(t, ok)
}

func TestRefreshSkipsWhileFiltering(t *testing.T) {
	fc := newFakeClient()
	fc.byGenre[28] = []domain.Movie{movie(5, "Action", 6, "", 28)}
	svc := NewService(fc, nil)
	ctx := context.Background()

	svc.Refresh(ctx)
	assert.Equal(t, 1, fc.count("trending"))

	svc.FilterByGenre(ctx, 28)
	svc.Refresh(ctx)
	assert.Equal(t, 1, fc.count("trending"))
}

func TestLoadMoreStopsAtTotalPages(t *testing.T) {
	fc := newFakeClient()
	fc.pages = []domain.MoviePage{
		{Page: 1, TotalPages: 2, Movies: []domain.Movie{movie(1, "A", 0, ""), movie(2, "B", 0, "")}},
		{Page: 2, TotalPages: 2, Movies: []domain.Movie{movie(3, "C", 0, "")}},
	}
	svc := NewService(fc, nil)
	ctx := context.Background()

	svc.FetchCatalogPage(ctx, 1)
	v := svc.View()
	assert.Equal(t, 1, v.CurrentPage)
	assert.Equal(t, 2, v.TotalPages)
	assert.True(t, v.HasMore())

	got := svc.LoadMore(ctx)
	assert.Equal(t, []int{3}, ids(got))
	assert.Equal(t, []int{1, 2, 3}, ids(svc.View().Popular))

	assert.Empty(t, svc.LoadMore(ctx))
	assert.Equal(t, 2, fc.count("discover"), "no request past the last page")

	// page 1 replaces
	svc.FetchCatalogPage(ctx, 1)
	assert.Equal(t, []int{1, 2}, ids(svc.View().Popular))
}

func TestSearchRequiresMinimumLength(t *testing.T) {
	fc := newFakeClient()
	fc.search["mat"] = []domain.Movie{movie(603, "The Matrix", 8.2, "1999-03-30")}
	svc := NewService(fc, nil)
	ctx := context.Background()

	assert.Empty(t, svc.Search(ctx, "ma"))
	assert.Equal(t, 0, fc.count("search"))
	assert.False(t, svc.View().Searching)

	got := svc.Search(ctx, "mat")
	assert.Equal(t, []int{603}, ids(got))
	v := svc.View()
	assert.True(t, v.Searching)
	assert.Equal(t, "mat", v.Query)
	assert.Equal(t, []int{603}, ids(v.Displayed()))

	svc.Search(ctx, "m")
	assert.False(t, svc.View().Searching)
}

func TestSearchNarrowedByActiveGenre(t *testing.T) {
	fc := newFakeClient()
	fc.byGenre[28] = []domain.Movie{movie(1, "Action", 0, "", 28)}
	fc.search["star"] = []domain.Movie{
		movie(11, "Star Wars", 8, "", 28, 12),
		movie(12, "A Star Is Born", 7, "", 18),
	}
	svc := NewService(fc, nil, WithMinQueryLength(2))
	ctx := context.Background()

	svc.FilterByGenre(ctx, 28)
	got := svc.Search(ctx, "star")
	assert.Equal(t, []int{11}, ids(got))

	// dropping the genre re-runs the search unnarrowed
	got = svc.FilterByGenre(ctx, 28)
	assert.Equal(t, []int{11, 12}, ids(got))
	assert.Equal(t, 0, svc.View().GenreID)
	assert.True(t, svc.View().Searching)
}

func TestFilterByGenreTwiceRestoresTrending(t *testing.T) {
	fc := newFakeClient()
	fc.trending = []domain.Movie{movie(1, "A", 0, ""), movie(2, "B", 0, "")}
	fc.byGenre[35] = []domain.Movie{movie(9, "Comedy", 0, "", 35)}
	svc := NewService(fc, nil)
	ctx := context.Background()

	svc.FetchTrending(ctx)
	before := svc.View()

	got := svc.FilterByGenre(ctx, 35)
	assert.Equal(t, []int{9}, ids(got))
	assert.Equal(t, 35, svc.View().GenreID)
	assert.Equal(t, []int{9}, ids(svc.View().Displayed()))

	svc.FilterByGenre(ctx, 35)
	after := svc.View()
	assert.False(t, after.Filtering())
	assert.Equal(t, ids(before.Displayed()), ids(after.Displayed()))
}

func TestClearSearchKeepsGenre(t *testing.T) {
	fc := newFakeClient()
	fc.byGenre[28] = []domain.Movie{movie(1, "Action", 0, "", 28)}
	fc.search["heat"] = []domain.Movie{movie(949, "Heat", 7.9, "1995-12-15", 28, 80)}
	svc := NewService(fc, nil)
	ctx := context.Background()

	svc.FilterByGenre(ctx, 28)
	svc.Search(ctx, "heat")
	svc.ClearSearch(ctx)

	v := svc.View()
	assert.False(t, v.Searching)
	assert.Equal(t, 28, v.GenreID)
	assert.Equal(t, []int{1}, ids(v.Displayed()))

	svc.Reset(ctx)
	assert.False(t, svc.View().Filtering())
}

func TestStaleSearchResultDiscarded(t *testing.T) {
	fc := newFakeClient()
	fc.search["alpha"] = []domain.Movie{movie(1, "Alpha", 0, "")}
	fc.search["beta"] = []domain.Movie{movie(2, "Beta", 0, "")}
	gate := make(chan struct{})
	fc.gates["alpha"] = gate
	fc.started = make(chan string, 2)
	svc := NewService(fc, nil)
	ctx := context.Background()

	done := make(chan []domain.Movie)
	go func() { done <- svc.Search(ctx, "alpha") }()
	require.Equal(t, "alpha", <-fc.started)

	assert.Equal(t, []int{2}, ids(svc.Search(ctx, "beta")))
	assert.Equal(t, "beta", <-fc.started)

	close(gate)
	assert.Empty(t, <-done, "superseded request reports nothing")

	v := svc.View()
	assert.Equal(t, "beta", v.Query)
	assert.Equal(t, []int{2}, ids(v.Filtered))
}

func TestFetchMovieDetails(t *testing.T) {
	fc := newFakeClient()
	fc.details[550] = &domain.Movie{ID: 550, Title: "Fight Club", TrailerKey: "yt"}
	fc.similar[550] = []domain.Movie{movie(807, "Se7en", 8.4, "")}
	svc := NewService(fc, nil)
	ctx := context.Background()

	m, ok := svc.FetchMovieDetails(ctx, 550)
	require.True(t, ok)
	assert.Equal(t, 550, m.ID)
	require.NotNil(t, svc.View().Selected)
	assert.Equal(t, "Fight Club", svc.View().Selected.Title)

	similar := svc.FetchSimilar(ctx, 550)
	assert.Equal(t, []int{807}, ids(similar))
	assert.Equal(t, []int{807}, ids(svc.View().Similar))

	// similar for a movie that is no longer selected is not stored
	svc.ClearSelection()
	svc.FetchSimilar(ctx, 550)
	assert.Nil(t, svc.View().Selected)
	assert.Empty(t, svc.View().Similar)

	_, ok = svc.FetchMovieDetails(ctx, 1)
	assert.False(t, ok)
	assert.Nil(t, svc.View().Selected)
}

func TestFetchGenresMemoized(t *testing.T) {
	fc := newFakeClient()
	fc.genres = []domain.Genre{{ID: 28, Name: "Action"}}
	svc := NewService(fc, nil)
	ctx := context.Background()

	assert.Len(t, svc.FetchGenres(ctx), 1)
	assert.Len(t, svc.FetchGenres(ctx), 1)
	assert.Equal(t, 1, fc.count("genres"))
}

func TestFetchGenresRetriesAfterFailure(t *testing.T) {
	fc := newFakeClient()
	fc.genres = []domain.Genre{{ID: 28, Name: "Action"}}
	fc.fail = true
	svc := NewService(fc, nil)
	ctx := context.Background()

	assert.Empty(t, svc.FetchGenres(ctx))
	fc.fail = false
	assert.Len(t, svc.FetchGenres(ctx), 1)
}

func TestRandomBackdrop(t *testing.T) {
	fc := newFakeClient()
	fc.trending = []domain.Movie{
		{ID: 1, BackdropPath: "/back1.jpg", PosterPath: "/post1.jpg"},
		{ID: 2, PosterPath: "/post2.jpg"},
		{ID: 3},
	}
	svc := NewService(fc, nil, WithImageBaseURL("https://img/"), WithRandom(func(n int) int { return n - 1 }))
	ctx := context.Background()

	url, ok := svc.RandomBackdrop(ctx)
	require.True(t, ok)
	assert.Equal(t, "https://img/original/post2.jpg", url, "poster stands in for a missing backdrop")
	assert.Equal(t, 1, fc.count("trending"))

	svc = NewService(fc, nil, WithImageBaseURL("https://img/"), WithRandom(func(int) int { return 0 }))
	url, ok = svc.RandomBackdrop(ctx)
	require.True(t, ok)
	assert.Equal(t, "https://img/original/back1.jpg", url)
}

func TestSetSortAppliesToDisplayed(t *testing.T) {
	fc := newFakeClient()
	fc.trending = []domain.Movie{movie(1, "A", 5, ""), movie(2, "B", 9, ""), movie(3, "C", 7, "")}
	svc := NewService(fc, nil)
	ctx := context.Background()
	svc.FetchTrending(ctx)

	spec := svc.SetSort(SortRating)
	assert.Equal(t, SortDesc, spec.Direction)
	assert.Equal(t, []int{2, 3, 1}, ids(svc.View().Displayed()))

	spec = svc.SetSort(SortRating)
	assert.Equal(t, SortAsc, spec.Direction)
	assert.Equal(t, []int{1, 3, 2}, ids(svc.View().Displayed()))

	assert.Equal(t, SortAsc, svc.SortSpec().Direction)
}
