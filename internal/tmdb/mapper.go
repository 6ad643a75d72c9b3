package tmdb

import "github.com/mmcdole/cinedex/internal/domain"

// Detail trimming applied to credits
const (
	maxCast = 10
)

// keyCrewJobs lists the crew jobs shown on a detail page
var keyCrewJobs = map[string]bool{
	"Director":   true,
	"Producer":   true,
	"Screenplay": true,
}

// MapMovies converts list results to domain movies
func MapMovies(results []MovieSummary) []domain.Movie {
	movies := make([]domain.Movie, 0, len(results))
	for _, r := range results {
		movies = append(movies, MapMovie(r))
	}
	return movies
}

// MapMovie converts a single list result
func MapMovie(r MovieSummary) domain.Movie {
	genreIDs := r.GenreIDs
	if genreIDs == nil {
		genreIDs = []int{}
	}
	return domain.Movie{
		ID:           r.ID,
		Title:        r.Title,
		Overview:     r.Overview,
		PosterPath:   r.PosterPath,
		BackdropPath: r.BackdropPath,
		ReleaseDate:  r.ReleaseDate,
		VoteAverage:  r.VoteAverage,
		GenreIDs:     genreIDs,
	}
}

// MapPage converts a paged envelope
func MapPage(resp PagedResponse) domain.MoviePage {
	return domain.MoviePage{
		Page:         resp.Page,
		TotalPages:   resp.TotalPages,
		TotalResults: resp.TotalResults,
		Movies:       MapMovies(resp.Results),
	}
}

// MapGenres converts genre entries
func MapGenres(dtos []GenreDTO) []domain.Genre {
	genres := make([]domain.Genre, len(dtos))
	for i, g := range dtos {
		genres[i] = domain.Genre{ID: g.ID, Name: g.Name}
	}
	return genres
}

// MapMovieDetail converts a detail response, resolving the trailer and trimming credits
func MapMovieDetail(d MovieDetail) *domain.Movie {
	m := &domain.Movie{
		ID:           d.ID,
		Title:        d.Title,
		Overview:     d.Overview,
		PosterPath:   d.PosterPath,
		BackdropPath: d.BackdropPath,
		ReleaseDate:  d.ReleaseDate,
		VoteAverage:  d.VoteAverage,
		Runtime:      d.Runtime,
		Genres:       MapGenres(d.Genres),
	}

	m.GenreIDs = make([]int, len(m.Genres))
	for i, g := range m.Genres {
		m.GenreIDs[i] = g.ID
	}

	for _, l := range d.SpokenLanguages {
		name := l.EnglishName
		if name == "" {
			name = l.Name
		}
		m.SpokenLanguages = append(m.SpokenLanguages, domain.Language{ISO639: l.ISO6391, Name: name})
	}

	if d.Videos != nil {
		videos := make([]domain.Video, len(d.Videos.Results))
		for i, v := range d.Videos.Results {
			videos[i] = domain.Video{Key: v.Key, Site: v.Site, Type: v.Type}
		}
		if key, ok := domain.SelectTrailer(videos); ok {
			m.TrailerKey = key
		}
	}

	if d.Credits != nil {
		m.Cast = mapCast(d.Credits.Cast)
		m.Crew = mapCrew(d.Credits.Crew)
	}

	return m
}

func mapCast(dtos []CastDTO) []domain.CastMember {
	if len(dtos) > maxCast {
		dtos = dtos[:maxCast]
	}
	cast := make([]domain.CastMember, len(dtos))
	for i, c := range dtos {
		cast[i] = domain.CastMember{
			ID:          c.ID,
			Name:        c.Name,
			Character:   c.Character,
			ProfilePath: c.ProfilePath,
		}
	}
	return cast
}

func mapCrew(dtos []CrewDTO) []domain.CrewMember {
	var crew []domain.CrewMember
	for _, c := range dtos {
		if !keyCrewJobs[c.Job] {
			continue
		}
		crew = append(crew, domain.CrewMember{
			ID:          c.ID,
			Name:        c.Name,
			Job:         c.Job,
			ProfilePath: c.ProfilePath,
		})
	}
	return crew
}
