package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/cinedex/internal/domain"
)

const (
	// DefaultBaseURL is the TMDB v3 API root
	DefaultBaseURL = "https://api.themoviedb.org/3"

	defaultTimeout = 15 * time.Second
	userAgent      = "Cinedex/1.0"

	maxSimilar = 6
)

// Client implements domain.CatalogClient for TMDB
type Client struct {
	baseURL    string
	token      string // v4 read access token, sent as bearer
	language   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL overrides the API root (tests point this at httptest)
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithLanguage sets the language query parameter (e.g. "en-US")
func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = lang }
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new TMDB API client
func NewClient(token string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest performs an authenticated GET and returns the body
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	if c.language != "" && query.Get("language") == "" {
		query.Set("language", c.language)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("tmdb request", "path", path, "query", query.Encode())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("tmdb request failed", "error", err, "path", path)
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteFetchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrRemoteFetchFailed, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %w", domain.ErrRemoteFetchFailed, domain.ErrAuthFailed)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w", domain.ErrRemoteFetchFailed, domain.ErrMovieNotFound)
	}

	var apiErr ErrorResponse
	msg := string(body)
	if json.Unmarshal(body, &apiErr) == nil && apiErr.StatusMessage != "" {
		msg = apiErr.StatusMessage
	}
	c.logger.Error("tmdb request error", "status", resp.StatusCode, "message", msg, "path", path)
	return nil, fmt.Errorf("%w: status %d: %s", domain.ErrRemoteFetchFailed, resp.StatusCode, msg)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	body, err := c.doRequest(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body), "path", path)
		return fmt.Errorf("%w: failed to parse response: %v", domain.ErrRemoteFetchFailed, err)
	}
	return nil
}

func (c *Client) getPage(ctx context.Context, path string, query url.Values) (domain.MoviePage, error) {
	var resp PagedResponse
	if err := c.getJSON(ctx, path, query, &resp); err != nil {
		return domain.MoviePage{}, err
	}
	return MapPage(resp), nil
}

// Trending returns today's trending movies
func (c *Client) Trending(ctx context.Context) ([]domain.Movie, error) {
	page, err := c.getPage(ctx, "/trending/movie/day", nil)
	if err != nil {
		return nil, err
	}
	return page.Movies, nil
}

// Discover returns one page of the popularity-sorted catalog, optionally narrowed by genre
func (c *Client) Discover(ctx context.Context, q domain.DiscoverQuery) (domain.MoviePage, error) {
	query := url.Values{}
	query.Set("sort_by", "popularity.desc")
	query.Set("page", strconv.Itoa(max(q.Page, 1)))
	if q.GenreID > 0 {
		query.Set("with_genres", strconv.Itoa(q.GenreID))
	}
	return c.getPage(ctx, "/discover/movie", query)
}

// SearchMovies performs a full-text title search
func (c *Client) SearchMovies(ctx context.Context, text string, page int) (domain.MoviePage, error) {
	query := url.Values{}
	query.Set("query", text)
	query.Set("page", strconv.Itoa(max(page, 1)))
	query.Set("include_adult", "false")
	return c.getPage(ctx, "/search/movie", query)
}

// MovieDetails returns the full record with videos and credits appended in one round trip
func (c *Client) MovieDetails(ctx context.Context, id int) (*domain.Movie, error) {
	query := url.Values{}
	query.Set("append_to_response", "videos,credits")

	var resp MovieDetail
	if err := c.getJSON(ctx, fmt.Sprintf("/movie/%d", id), query, &resp); err != nil {
		return nil, err
	}
	return MapMovieDetail(resp), nil
}

// Similar returns up to six movies similar to id
func (c *Client) Similar(ctx context.Context, id int) ([]domain.Movie, error) {
	page, err := c.getPage(ctx, fmt.Sprintf("/movie/%d/similar", id), nil)
	if err != nil {
		return nil, err
	}
	movies := page.Movies
	if len(movies) > maxSimilar {
		movies = movies[:maxSimilar]
	}
	return movies, nil
}

// Genres returns the movie genre list
func (c *Client) Genres(ctx context.Context) ([]domain.Genre, error) {
	var resp GenreListResponse
	if err := c.getJSON(ctx, "/genre/movie/list", nil, &resp); err != nil {
		return nil, err
	}
	return MapGenres(resp.Genres), nil
}

// compile-time interface check
var _ domain.CatalogClient = (*Client)(nil)
