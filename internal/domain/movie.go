package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Image sizes understood by the TMDB image CDN
const (
	ImageSizeW500     = "w500"
	ImageSizeW780     = "w780"
	ImageSizeOriginal = "original"
)

// DefaultImageBaseURL is the TMDB image CDN root
const DefaultImageBaseURL = "https://image.tmdb.org/t/p/"

// releaseLayout is the date format used by the catalog API
const releaseLayout = "2006-01-02"

// Movie is a catalog record as returned by the remote API.
// It is a read-only value: never mutated after mapping.
type Movie struct {
	ID           int     `json:"id"`            // Stable catalog identifier
	Title        string  `json:"title"`         // Display title
	Overview     string  `json:"overview"`      // Plot synopsis
	PosterPath   string  `json:"poster_path"`   // Relative image path
	BackdropPath string  `json:"backdrop_path"` // Relative image path
	ReleaseDate  string  `json:"release_date"`  // YYYY-MM-DD, may be empty
	VoteAverage  float64 `json:"vote_average"`  // 0-10 community rating
	GenreIDs     []int   `json:"genre_ids"`

	// Detail-only fields (empty on list results)
	Runtime         int          `json:"runtime,omitempty"` // Minutes
	Genres          []Genre      `json:"genres,omitempty"`
	SpokenLanguages []Language   `json:"spoken_languages,omitempty"`
	Cast            []CastMember `json:"cast,omitempty"`
	Crew            []CrewMember `json:"crew,omitempty"`
	TrailerKey      string       `json:"trailer_key,omitempty"` // YouTube video key
}

// Genre is a catalog genre tag
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Language is a spoken language of a movie
type Language struct {
	ISO639 string `json:"iso_639_1"`
	Name   string `json:"name"`
}

// CastMember is an actor credit
type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path,omitempty"`
}

// CrewMember is a non-acting credit
type CrewMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Job         string `json:"job"`
	ProfilePath string `json:"profile_path,omitempty"`
}

// Released parses the release date. ok is false when the date is missing or malformed.
func (m Movie) Released() (time.Time, bool) {
	if m.ReleaseDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(releaseLayout, m.ReleaseDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Year returns the release year (0 if unknown)
func (m Movie) Year() int {
	if t, ok := m.Released(); ok {
		return t.Year()
	}
	if len(m.ReleaseDate) >= 4 {
		y, _ := strconv.Atoi(m.ReleaseDate[:4])
		return y
	}
	return 0
}

// HasGenre reports whether the movie is tagged with genreID.
// Falls back to expanded Genres for detail records.
func (m Movie) HasGenre(genreID int) bool {
	for _, id := range m.GenreIDs {
		if id == genreID {
			return true
		}
	}
	for _, g := range m.Genres {
		if g.ID == genreID {
			return true
		}
	}
	return false
}

// FormattedRuntime returns the runtime in a human-readable format
func (m Movie) FormattedRuntime() string {
	if m.Runtime <= 0 {
		return ""
	}
	h := m.Runtime / 60
	mins := m.Runtime % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// PosterURL builds an absolute poster URL, empty if the movie has no poster
func (m Movie) PosterURL(base, size string) string {
	return imageURL(base, size, m.PosterPath)
}

// BackdropURL builds an absolute backdrop URL, empty if the movie has no backdrop
func (m Movie) BackdropURL(base, size string) string {
	return imageURL(base, size, m.BackdropPath)
}

// TrailerURL returns the YouTube watch URL for the trailer, if any
func (m Movie) TrailerURL() string {
	if m.TrailerKey == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + m.TrailerKey
}

func imageURL(base, size, path string) string {
	if path == "" {
		return ""
	}
	if base == "" {
		base = DefaultImageBaseURL
	}
	if size == "" {
		size = ImageSizeW500
	}
	return base + size + path
}

// MoviePage is one page of a paginated catalog listing
type MoviePage struct {
	Page         int
	TotalPages   int
	TotalResults int
	Movies       []Movie
}

// Video is a video attached to a movie (trailers, teasers, clips)
type Video struct {
	Key  string
	Site string
	Type string
}

// SelectTrailer picks the first YouTube trailer, ok is false if none exists.
func SelectTrailer(videos []Video) (string, bool) {
	for _, v := range videos {
		if v.Type == "Trailer" && v.Site == "YouTube" && v.Key != "" {
			return v.Key, true
		}
	}
	return "", false
}
