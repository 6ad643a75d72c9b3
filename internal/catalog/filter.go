package catalog

import (
	"strings"

	"github.com/mmcdole/cinedex/internal/domain"
	"github.com/sahilm/fuzzy"
)

// titleIndex implements sahilm/fuzzy.Source over movie titles
type titleIndex struct {
	lowerTitles []string
}

func newTitleIndex(movies []domain.Movie) titleIndex {
	idx := titleIndex{lowerTitles: make([]string, len(movies))}
	for i, m := range movies {
		idx.lowerTitles[i] = strings.ToLower(m.Title)
	}
	return idx
}

// String returns the lowercase title at index i (implements fuzzy.Source)
func (t titleIndex) String(i int) string { return t.lowerTitles[i] }

// Len returns the number of titles (implements fuzzy.Source)
func (t titleIndex) Len() int { return len(t.lowerTitles) }

// Match is a filtered movie with the title positions that matched
type Match struct {
	Movie          domain.Movie
	MatchedIndexes []int
}

// FilterMatches fuzzy-matches query against titles, best match first
func FilterMatches(movies []domain.Movie, query string) []Match {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]Match, len(movies))
		for i, m := range movies {
			out[i] = Match{Movie: m}
		}
		return out
	}

	found := fuzzy.FindFrom(strings.ToLower(query), newTitleIndex(movies))
	out := make([]Match, len(found))
	for i, f := range found {
		out[i] = Match{Movie: movies[f.Index], MatchedIndexes: f.MatchedIndexes}
	}
	return out
}

// Filter narrows movies to fuzzy title matches of query.
// An empty query returns every movie in input order.
func Filter(movies []domain.Movie, query string) []domain.Movie {
	matches := FilterMatches(movies, query)
	out := make([]domain.Movie, len(matches))
	for i, m := range matches {
		out[i] = m.Movie
	}
	return out
}

// FilterGenre keeps movies tagged with genreID, in input order
func FilterGenre(movies []domain.Movie, genreID int) []domain.Movie {
	out := make([]domain.Movie, 0, len(movies))
	for _, m := range movies {
		if m.HasGenre(genreID) {
			out = append(out, m)
		}
	}
	return out
}
