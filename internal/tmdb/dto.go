package tmdb

// Wire types for TMDB v3 JSON responses (internal, mapped to domain types)

// PagedResponse is the envelope for trending, discover, search and similar
type PagedResponse struct {
	Page         int            `json:"page"`
	Results      []MovieSummary `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// MovieSummary is a movie as it appears in list results
type MovieSummary struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	VoteAverage  float64 `json:"vote_average"`
	GenreIDs     []int   `json:"genre_ids"`
}

// MovieDetail is the /movie/{id} response with appended sub-resources
type MovieDetail struct {
	ID              int              `json:"id"`
	Title           string           `json:"title"`
	Overview        string           `json:"overview"`
	PosterPath      string           `json:"poster_path"`
	BackdropPath    string           `json:"backdrop_path"`
	ReleaseDate     string           `json:"release_date"`
	VoteAverage     float64          `json:"vote_average"`
	Runtime         int              `json:"runtime"`
	Genres          []GenreDTO       `json:"genres"`
	SpokenLanguages []SpokenLanguage `json:"spoken_languages"`
	Videos          *VideoList       `json:"videos,omitempty"`
	Credits         *Credits         `json:"credits,omitempty"`
}

// GenreDTO is a genre entry
type GenreDTO struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenreListResponse is the /genre/movie/list response
type GenreListResponse struct {
	Genres []GenreDTO `json:"genres"`
}

// SpokenLanguage is an entry of spoken_languages
type SpokenLanguage struct {
	ISO6391     string `json:"iso_639_1"`
	EnglishName string `json:"english_name"`
	Name        string `json:"name"`
}

// VideoList is the videos sub-resource
type VideoList struct {
	Results []VideoDTO `json:"results"`
}

// VideoDTO is one video entry
type VideoDTO struct {
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// Credits is the credits sub-resource
type Credits struct {
	Cast []CastDTO `json:"cast"`
	Crew []CrewDTO `json:"crew"`
}

// CastDTO is one cast credit
type CastDTO struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

// CrewDTO is one crew credit
type CrewDTO struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Job         string `json:"job"`
	ProfilePath string `json:"profile_path"`
}

// ErrorResponse is the body TMDB returns on failures
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}
