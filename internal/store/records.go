package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmcdole/cinedex/internal/domain"
)

// principalRecord is the persisted form of a roster entry.
// Favorites live in their own bucket.
type principalRecord struct {
	Version      int           `json:"v"`
	Position     int           `json:"pos"` // Roster order
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"password_hash,omitempty"`
	Role         domain.Role   `json:"role"`
	Status       domain.Status `json:"status"`
	Avatar       string        `json:"avatar,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`

	favorites []domain.Movie
}

// favoritesRecord is the per-principal favorites table entry
type favoritesRecord struct {
	Version int            `json:"v"`
	Movies  []domain.Movie `json:"movies"`
}

// sessionRecord is the current-session pointer plus a snapshot of the principal
type sessionRecord struct {
	Version     int              `json:"v"`
	PrincipalID string           `json:"principal_id"`
	Principal   *principalRecord `json:"principal,omitempty"`
	Favorites   []domain.Movie   `json:"favorites,omitempty"`
}

func fromDomain(p domain.Principal, position int) principalRecord {
	return principalRecord{
		Version:      SchemaVersion,
		Position:     position,
		ID:           p.ID,
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
		Status:       p.Status,
		Avatar:       p.Avatar,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (r principalRecord) toDomain() domain.Principal {
	return domain.Principal{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		Status:       r.Status,
		Avatar:       r.Avatar,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func encodePrincipal(p domain.Principal, position int) ([]byte, error) {
	return json.Marshal(fromDomain(p, position))
}

func decodePrincipal(data []byte) (principalRecord, error) {
	var rec principalRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return principalRecord{}, fmt.Errorf("failed to decode principal: %w", err)
	}
	if rec.Version > SchemaVersion {
		return principalRecord{}, ErrSchemaTooNew
	}
	if rec.ID == "" {
		return principalRecord{}, fmt.Errorf("principal record has no id")
	}
	if rec.Role == "" {
		rec.Role = domain.RoleUser
	}
	if rec.Status == "" {
		rec.Status = domain.StatusActive
	}
	return rec, nil
}

func encodeFavorites(movies []domain.Movie) ([]byte, error) {
	if movies == nil {
		movies = []domain.Movie{}
	}
	return json.Marshal(favoritesRecord{Version: SchemaVersion, Movies: movies})
}

func decodeFavorites(data []byte) ([]domain.Movie, error) {
	var rec favoritesRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode favorites: %w", err)
	}
	if rec.Version > SchemaVersion {
		return nil, ErrSchemaTooNew
	}
	if rec.Movies == nil {
		rec.Movies = []domain.Movie{}
	}
	return rec.Movies, nil
}
