package catalog

import (
	"cmp"
	"slices"

	"github.com/mmcdole/cinedex/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortField represents a field to sort by
type SortField int

const (
	SortNone SortField = iota // API order
	SortRating
	SortTitle
	SortReleased
)

// String returns the display name for the sort field
func (f SortField) String() string {
	switch f {
	case SortRating:
		return "Rating"
	case SortTitle:
		return "Title"
	case SortReleased:
		return "Release Date"
	default:
		return "Default"
	}
}

// SortDirection represents sort direction
type SortDirection int

const (
	SortDesc SortDirection = iota
	SortAsc
)

// String returns an arrow for the direction
func (d SortDirection) String() string {
	if d == SortAsc {
		return "↑"
	}
	return "↓"
}

// SortSpec is a field, a direction and the locale used to collate titles
type SortSpec struct {
	Field     SortField
	Direction SortDirection
	Locale    language.Tag
}

// Toggle returns the new sort after the user picks field: the same field
// flips direction, a new field starts descending.
func (s SortSpec) Toggle(field SortField) SortSpec {
	if field == s.Field {
		if s.Direction == SortDesc {
			s.Direction = SortAsc
		} else {
			s.Direction = SortDesc
		}
		return s
	}
	s.Field = field
	s.Direction = SortDesc
	return s
}

// Sort returns a sorted copy of movies. Equal keys keep their input order.
// Undated movies sort last for SortReleased in either direction.
func Sort(movies []domain.Movie, spec SortSpec) []domain.Movie {
	out := make([]domain.Movie, len(movies))
	copy(out, movies)
	if spec.Field == SortNone || len(out) < 2 {
		return out
	}

	sign := -1
	if spec.Direction == SortAsc {
		sign = 1
	}

	switch spec.Field {
	case SortRating:
		slices.SortStableFunc(out, func(a, b domain.Movie) int {
			return sign * cmp.Compare(a.VoteAverage, b.VoteAverage)
		})
	case SortTitle:
		// Collators keep scratch buffers, so one per call
		c := collate.New(spec.Locale)
		slices.SortStableFunc(out, func(a, b domain.Movie) int {
			return sign * c.CompareString(a.Title, b.Title)
		})
	case SortReleased:
		slices.SortStableFunc(out, func(a, b domain.Movie) int {
			ta, okA := a.Released()
			tb, okB := b.Released()
			switch {
			case !okA && !okB:
				return 0
			case !okA:
				return 1
			case !okB:
				return -1
			}
			return sign * ta.Compare(tb)
		})
	}
	return out
}
