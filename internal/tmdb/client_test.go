package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmcdole/cinedex/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key"}`))
			return
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status_code":34,"status_message":"not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTrending(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/trending/movie/day": `{"page":1,"total_pages":1,"results":[
			{"id":550,"title":"Fight Club","vote_average":8.4,"release_date":"1999-10-15","genre_ids":[18]},
			{"id":13,"title":"Forrest Gump","vote_average":8.5,"release_date":"1994-06-23"}
		]}`,
	})
	c := NewClient(testToken, nil, WithBaseURL(srv.URL))

	movies, err := c.Trending(context.Background())
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, 550, movies[0].ID)
	assert.Equal(t, []int{18}, movies[0].GenreIDs)
	assert.NotNil(t, movies[1].GenreIDs, "missing genre_ids maps to an empty set")
	assert.Equal(t, 1994, movies[1].Year())
}

func TestDiscoverQuery(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`{"page":2,"total_pages":9,"total_results":180,"results":[]}`))
	}))
	defer srv.Close()

	c := NewClient(testToken, nil, WithBaseURL(srv.URL), WithLanguage("en-US"))
	page, err := c.Discover(context.Background(), domain.DiscoverQuery{Page: 2, GenreID: 28})
	require.NoError(t, err)

	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 9, page.TotalPages)
	require.NotNil(t, got)
	assert.Equal(t, "/discover/movie", got.URL.Path)
	assert.Equal(t, "popularity.desc", got.URL.Query().Get("sort_by"))
	assert.Equal(t, "2", got.URL.Query().Get("page"))
	assert.Equal(t, "28", got.URL.Query().Get("with_genres"))
	assert.Equal(t, "en-US", got.URL.Query().Get("language"))
}

func TestMovieDetailsResolvesTrailerAndCredits(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/movie/550": `{
			"id":550,"title":"Fight Club","runtime":139,"vote_average":8.4,
			"genres":[{"id":18,"name":"Drama"}],
			"spoken_languages":[{"iso_639_1":"en","english_name":"English","name":"English"}],
			"videos":{"results":[
				{"key":"vimeo1","site":"Vimeo","type":"Trailer"},
				{"key":"teaser","site":"YouTube","type":"Teaser"},
				{"key":"yt-trailer","site":"YouTube","type":"Trailer"},
				{"key":"yt-second","site":"YouTube","type":"Trailer"}
			]},
			"credits":{
				"cast":[
					{"id":1,"name":"A"},{"id":2,"name":"B"},{"id":3,"name":"C"},{"id":4,"name":"D"},
					{"id":5,"name":"E"},{"id":6,"name":"F"},{"id":7,"name":"G"},{"id":8,"name":"H"},
					{"id":9,"name":"I"},{"id":10,"name":"J"},{"id":11,"name":"K"}
				],
				"crew":[
					{"id":20,"name":"David Fincher","job":"Director"},
					{"id":21,"name":"Someone","job":"Gaffer"},
					{"id":22,"name":"Jim Uhls","job":"Screenplay"}
				]
			}
		}`,
	})
	c := NewClient(testToken, nil, WithBaseURL(srv.URL))

	m, err := c.MovieDetails(context.Background(), 550)
	require.NoError(t, err)
	assert.Equal(t, 550, m.ID)
	assert.Equal(t, "yt-trailer", m.TrailerKey)
	assert.Len(t, m.Cast, 10)
	require.Len(t, m.Crew, 2)
	assert.Equal(t, "Director", m.Crew[0].Job)
	assert.Equal(t, []int{18}, m.GenreIDs)
	assert.Equal(t, "2h 19m", m.FormattedRuntime())
	require.Len(t, m.SpokenLanguages, 1)
}

func TestMovieDetailsWithoutTrailer(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/movie/1": `{"id":1,"title":"Quiet","videos":{"results":[{"key":"x","site":"YouTube","type":"Clip"}]}}`,
	})
	c := NewClient(testToken, nil, WithBaseURL(srv.URL))

	m, err := c.MovieDetails(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, m.TrailerKey)
	assert.Empty(t, m.TrailerURL())
}

func TestSimilarIsTrimmed(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/movie/550/similar": `{"results":[{"id":1},{"id":2},{"id":3},{"id":4},{"id":5},{"id":6},{"id":7},{"id":8}]}`,
	})
	c := NewClient(testToken, nil, WithBaseURL(srv.URL))

	movies, err := c.Similar(context.Background(), 550)
	require.NoError(t, err)
	assert.Len(t, movies, 6)
}

func TestErrors(t *testing.T) {
	srv := newTestServer(t, map[string]string{})

	t.Run("unauthorized", func(t *testing.T) {
		c := NewClient("wrong", nil, WithBaseURL(srv.URL))
		_, err := c.Genres(context.Background())
		assert.ErrorIs(t, err, domain.ErrRemoteFetchFailed)
		assert.ErrorIs(t, err, domain.ErrAuthFailed)
	})

	t.Run("not found", func(t *testing.T) {
		c := NewClient(testToken, nil, WithBaseURL(srv.URL))
		_, err := c.MovieDetails(context.Background(), 404)
		assert.ErrorIs(t, err, domain.ErrRemoteFetchFailed)
		assert.ErrorIs(t, err, domain.ErrMovieNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"status_message":"boom"}`))
		}))
		defer bad.Close()

		c := NewClient(testToken, nil, WithBaseURL(bad.URL))
		_, err := c.Trending(context.Background())
		assert.ErrorIs(t, err, domain.ErrRemoteFetchFailed)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("unreachable", func(t *testing.T) {
		c := NewClient(testToken, nil, WithBaseURL("http://127.0.0.1:1"))
		_, err := c.Trending(context.Background())
		assert.ErrorIs(t, err, domain.ErrRemoteFetchFailed)
	})

	t.Run("malformed body", func(t *testing.T) {
		junk := newTestServer(t, map[string]string{"/genre/movie/list": `{not json`})
		c := NewClient(testToken, nil, WithBaseURL(junk.URL))
		_, err := c.Genres(context.Background())
		assert.ErrorIs(t, err, domain.ErrRemoteFetchFailed)
	})
}
