package domain

// SessionStore persists the roster, the favorites table and the
// current-session pointer on the local machine.
type SessionStore interface {
	// LoadRoster returns every known principal with favorites attached
	LoadRoster() ([]Principal, error)

	// SaveRoster replaces the stored roster and favorites tables atomically
	SaveRoster(principals []Principal) error

	// LoadSession returns the current principal snapshot, nil when anonymous
	LoadSession() (*Principal, error)

	// SaveSession stores the current principal snapshot; nil clears it
	SaveSession(p *Principal) error

	// Commit replaces the roster and the session pointer together,
	// nothing is written if any part fails. current nil clears the session.
	Commit(roster []Principal, current *Principal) error

	// LoadFavorites returns the favorites stored for id (used for the
	// synthetic admin, who is not in the roster)
	LoadFavorites(id string) ([]Movie, error)

	Close() error
}
