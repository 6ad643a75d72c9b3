package domain

import "context"

// DiscoverQuery selects a page of the popularity-sorted catalog.
// GenreID 0 means no genre narrowing.
type DiscoverQuery struct {
	Page    int
	GenreID int
}

// CatalogClient: Network operations against the remote movie metadata API
// (implemented by the tmdb client)
type CatalogClient interface {
	// Trending returns today's trending movies
	Trending(ctx context.Context) ([]Movie, error)

	// Discover returns one page of the catalog sorted by popularity
	Discover(ctx context.Context, q DiscoverQuery) (MoviePage, error)

	// SearchMovies performs a full-text title search
	SearchMovies(ctx context.Context, query string, page int) (MoviePage, error)

	// MovieDetails returns the full record with credits and trailer resolved
	MovieDetails(ctx context.Context, id int) (*Movie, error)

	// Similar returns movies similar to id
	Similar(ctx context.Context, id int) ([]Movie, error)

	// Genres returns the catalog's movie genre list
	Genres(ctx context.Context) ([]Genre, error)
}
