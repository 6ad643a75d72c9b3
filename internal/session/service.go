package session

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/cinedex/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Default reserved administrator credentials
const (
	DefaultAdminEmail    = "admin@admin.com"
	DefaultAdminPassword = "admin"
)

// Service owns the roster and the single current principal for this machine.
// Every mutation persists the roster and the session pointer, then notifies subscribers.
type Service struct {
	store    domain.SessionStore
	logger   *slog.Logger
	validate *validator.Validate
	events   domain.Broadcaster

	mu        sync.Mutex
	roster    []domain.Principal
	currentID string            // empty when anonymous
	admin     *domain.Principal // synthetic admin session, not in roster

	enforceAdmin  bool
	adminEmail    string
	adminPassword string
	bcryptCost    int
	now           func() time.Time
}

// Option customizes a Service
type Option func(*Service)

// WithAuthorization makes privileged operations require an admin session
func WithAuthorization() Option {
	return func(s *Service) { s.enforceAdmin = true }
}

// WithAdminCredentials overrides the reserved administrator credential pair
func WithAdminCredentials(email, password string) Option {
	return func(s *Service) {
		if email != "" && password != "" {
			s.adminEmail = email
			s.adminPassword = password
		}
	}
}

// WithBcryptCost sets the password hashing cost (tests use bcrypt.MinCost)
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService restores the roster and the session pointer from store.
// A stored session for a missing or banned principal is discarded.
func NewService(store domain.SessionStore, logger *slog.Logger, opts ...Option) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:         store,
		logger:        logger,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		adminEmail:    DefaultAdminEmail,
		adminPassword: DefaultAdminPassword,
		bcryptCost:    bcrypt.DefaultCost,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	roster, err := store.LoadRoster()
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	s.roster = roster

	snap, err := store.LoadSession()
	if err != nil {
		s.logger.Warn("discarding unreadable session", "error", err)
		snap = nil
	}
	if snap != nil {
		s.restore(*snap)
	}

	s.logger.Debug("session store ready", "principals", len(s.roster), "authenticated", s.currentID != "")
	return s, nil
}

func (s *Service) restore(snap domain.Principal) {
	if snap.ID == domain.AdminID {
		admin := s.syntheticAdmin()
		admin.Name = snap.Name
		admin.Avatar = snap.Avatar
		if snap.Favorites != nil {
			admin.Favorites = snap.Favorites
		}
		s.admin = &admin
		s.currentID = admin.ID
		return
	}
	idx := s.indexByID(s.roster, snap.ID)
	if idx < 0 || s.roster[idx].IsBanned() {
		s.logger.Info("dropping stale session", "principalID", snap.ID)
		if err := s.store.SaveSession(nil); err != nil {
			s.logger.Error("failed to clear session", "error", err)
		}
		return
	}
	s.currentID = snap.ID
}

// Subscribe registers fn to run after every state change
func (s *Service) Subscribe(fn domain.Listener) (unsubscribe func()) {
	return s.events.Subscribe(fn)
}

// === Accounts ===

// CreatePrincipal adds a new active user to the roster. It does not log them in.
func (s *Service) CreatePrincipal(data domain.SignupData) (*domain.Principal, error) {
	data.Name = strings.TrimSpace(data.Name)
	data.Email = strings.TrimSpace(data.Email)
	if err := s.validate.Struct(data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignup, err)
	}

	hash, err := s.hash(data.Password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.emailTaken(s.roster, data.Email, "") {
		s.mu.Unlock()
		return nil, domain.ErrDuplicateEmail
	}

	now := s.now()
	p := domain.Principal{
		ID:           uuid.NewString(),
		Name:         data.Name,
		Email:        data.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		Avatar:       data.Avatar,
		Favorites:    []domain.Movie{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	next := append(cloneRoster(s.roster), p)
	if err := s.commitLocked(next, s.currentID, s.admin); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	s.logger.Info("created principal", "principalID", p.ID, "email", p.Email)
	s.events.Notify()
	out := public(p)
	return &out, nil
}

// Authenticate logs in with email and password.
// The reserved admin pair is checked first and yields a synthetic admin.
func (s *Service) Authenticate(email, password string) (*domain.Principal, error) {
	if s.isAdminCredential(email, password) {
		admin := s.syntheticAdmin()
		favorites, err := s.store.LoadFavorites(domain.AdminID)
		if err != nil {
			s.logger.Warn("failed to load admin favorites", "error", err)
		} else {
			admin.Favorites = favorites
		}
		s.mu.Lock()
		if err := s.commitLocked(s.roster, admin.ID, &admin); err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.mu.Unlock()

		s.logger.Info("admin logged in")
		s.events.Notify()
		out := public(admin)
		return &out, nil
	}

	s.mu.Lock()
	idx := s.indexByEmail(s.roster, email)
	if idx < 0 {
		s.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	p := s.roster[idx]
	s.mu.Unlock()

	// Banned accounts fail regardless of credential correctness
	if p.IsBanned() {
		s.logger.Info("rejected banned login", "principalID", p.ID)
		return nil, domain.ErrAccountBanned
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to check password hash: %w", err)
	}

	s.mu.Lock()
	// Re-check: the roster may have changed while hashing
	idx = s.indexByID(s.roster, p.ID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	if s.roster[idx].IsBanned() {
		s.mu.Unlock()
		return nil, domain.ErrAccountBanned
	}
	p = s.roster[idx]
	if err := s.commitLocked(s.roster, p.ID, nil); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	s.logger.Info("principal logged in", "principalID", p.ID)
	s.events.Notify()
	out := public(p)
	return &out, nil
}

// Logout clears the current principal
func (s *Service) Logout() error {
	s.mu.Lock()
	if s.currentID == "" {
		s.mu.Unlock()
		return nil
	}
	id := s.currentID
	if err := s.commitLocked(s.roster, "", nil); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Info("logged out", "principalID", id)
	s.events.Notify()
	return nil
}

// Current returns a copy of the current principal
func (s *Service) Current() (*domain.Principal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.currentLocked()
	if p == nil {
		return nil, false
	}
	out := public(*p)
	return &out, true
}

// UpdatePrincipal merges non-nil fields of u onto the current principal
func (s *Service) UpdatePrincipal(u domain.ProfileUpdate) (*domain.Principal, error) {
	if err := s.validate.Struct(u); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignup, err)
	}

	var hash string
	if u.Password != nil {
		h, err := s.hash(*u.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	s.mu.Lock()
	cur := s.currentLocked()
	if cur == nil {
		s.mu.Unlock()
		return nil, domain.ErrNoActiveSession
	}
	if u.Email != nil && s.emailTaken(s.roster, *u.Email, cur.ID) {
		s.mu.Unlock()
		return nil, domain.ErrDuplicateEmail
	}

	updated := cur.Clone()
	if u.Name != nil {
		updated.Name = strings.TrimSpace(*u.Name)
	}
	if u.Email != nil {
		updated.Email = strings.TrimSpace(*u.Email)
	}
	if u.Avatar != nil {
		updated.Avatar = *u.Avatar
	}
	if hash != "" {
		updated.PasswordHash = hash
	}
	updated.UpdatedAt = s.now()

	next, admin := s.replaceCurrent(updated)
	if err := s.commitLocked(next, updated.ID, admin); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	s.logger.Info("updated principal", "principalID", updated.ID)
	s.events.Notify()
	out := public(updated)
	return &out, nil
}

// === Favorites ===

// ToggleFavorite adds movie to the current principal's favorites, or removes it
// if already present. It reports whether the movie is now a favorite.
func (s *Service) ToggleFavorite(movie domain.Movie) (added bool, err error) {
	s.mu.Lock()
	cur := s.currentLocked()
	if cur == nil {
		s.mu.Unlock()
		return false, domain.ErrNoActiveSession
	}

	updated := cur.Clone()
	if idx := updated.FavoriteIndex(movie.ID); idx >= 0 {
		updated.Favorites = append(updated.Favorites[:idx], updated.Favorites[idx+1:]...)
	} else {
		updated.Favorites = append(updated.Favorites, movie)
		added = true
	}
	if updated.Favorites == nil {
		updated.Favorites = []domain.Movie{}
	}

	next, admin := s.replaceCurrent(updated)
	if err := s.commitLocked(next, updated.ID, admin); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.mu.Unlock()

	s.logger.Debug("toggled favorite", "principalID", updated.ID, "movieID", movie.ID, "added", added)
	s.events.Notify()
	return added, nil
}

// IsFavorite reports whether movieID is in the current principal's favorites.
// Anonymous sessions have no favorites.
func (s *Service) IsFavorite(movieID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.currentLocked()
	return cur != nil && cur.FavoriteIndex(movieID) >= 0
}

// Favorites returns the current principal's favorites in insertion order
func (s *Service) Favorites() []domain.Movie {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.currentLocked()
	if cur == nil {
		return []domain.Movie{}
	}
	out := make([]domain.Movie, len(cur.Favorites))
	copy(out, cur.Favorites)
	return out
}

// === Moderation ===

// BanPrincipal marks id banned; banning the current principal logs them out
func (s *Service) BanPrincipal(id string) error {
	return s.setStatus(id, domain.StatusBanned)
}

// UnbanPrincipal marks id active again
func (s *Service) UnbanPrincipal(id string) error {
	return s.setStatus(id, domain.StatusActive)
}

func (s *Service) setStatus(id string, status domain.Status) error {
	s.mu.Lock()
	if err := s.authorizeLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	idx := s.indexByID(s.roster, id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrNotFound
	}

	next := cloneRoster(s.roster)
	next[idx].Status = status
	next[idx].UpdatedAt = s.now()

	currentID, admin := s.currentID, s.admin
	forced := status == domain.StatusBanned && currentID == id
	if forced {
		currentID, admin = "", nil
	}
	if err := s.commitLocked(next, currentID, admin); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Info("changed principal status", "principalID", id, "status", status, "forcedLogout", forced)
	s.events.Notify()
	return nil
}

// DeletePrincipal removes id and its favorites; deleting the current principal logs them out
func (s *Service) DeletePrincipal(id string) error {
	s.mu.Lock()
	if err := s.authorizeLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	idx := s.indexByID(s.roster, id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrNotFound
	}

	next := cloneRoster(s.roster)
	next = append(next[:idx], next[idx+1:]...)

	currentID, admin := s.currentID, s.admin
	forced := currentID == id
	if forced {
		currentID, admin = "", nil
	}
	if err := s.commitLocked(next, currentID, admin); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Info("deleted principal", "principalID", id, "forcedLogout", forced)
	s.events.Notify()
	return nil
}

// SetRole grants or revokes admin on a roster principal
func (s *Service) SetRole(id string, role domain.Role) error {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidSignup, role)
	}

	s.mu.Lock()
	if err := s.authorizeLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	idx := s.indexByID(s.roster, id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrNotFound
	}

	next := cloneRoster(s.roster)
	next[idx].Role = role
	next[idx].UpdatedAt = s.now()
	if err := s.commitLocked(next, s.currentID, s.admin); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Info("changed principal role", "principalID", id, "role", role)
	s.events.Notify()
	return nil
}

// Principals returns a copy of the roster in sign-up order
func (s *Service) Principals() ([]domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.authorizeLocked(); err != nil {
		return nil, err
	}
	out := make([]domain.Principal, len(s.roster))
	for i, p := range s.roster {
		out[i] = public(p)
	}
	return out, nil
}

// SearchPrincipals fuzzy-matches query against name and email, best match first.
// An empty query returns the whole roster.
func (s *Service) SearchPrincipals(query string) ([]domain.Principal, error) {
	all, err := s.Principals()
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return all, nil
	}

	targets := make([]string, len(all))
	for i, p := range all {
		targets[i] = p.Name + " " + p.Email
	}
	ranks := fuzzy.RankFindFold(query, targets)
	sort.Stable(ranks)

	out := make([]domain.Principal, len(ranks))
	for i, r := range ranks {
		out[i] = all[r.OriginalIndex]
	}
	return out, nil
}

// Stats summarizes the roster
func (s *Service) Stats() domain.RosterStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st domain.RosterStats
	for _, p := range s.roster {
		st.Total++
		if p.IsAdmin() {
			st.Admins++
		}
		if p.IsBanned() {
			st.Banned++
		} else {
			st.Active++
		}
	}
	return st
}

// === Internals ===

// commitLocked persists the candidate state and only then makes it current.
// Caller must hold s.mu.
func (s *Service) commitLocked(roster []domain.Principal, currentID string, admin *domain.Principal) error {
	var snap *domain.Principal
	switch {
	case currentID == "":
	case admin != nil && admin.ID == currentID:
		snap = admin
	default:
		if idx := s.indexByID(roster, currentID); idx >= 0 {
			snap = &roster[idx]
		} else {
			currentID = ""
		}
	}
	if err := s.store.Commit(roster, snap); err != nil {
		s.logger.Error("failed to persist session state", "error", err)
		return fmt.Errorf("failed to persist session state: %w", err)
	}

	s.roster = roster
	s.currentID = currentID
	if admin != nil && admin.ID == currentID {
		s.admin = admin
	} else {
		s.admin = nil
	}
	return nil
}

// currentLocked returns the live current principal or nil. Caller must hold s.mu.
func (s *Service) currentLocked() *domain.Principal {
	if s.currentID == "" {
		return nil
	}
	if s.admin != nil && s.admin.ID == s.currentID {
		return s.admin
	}
	if idx := s.indexByID(s.roster, s.currentID); idx >= 0 {
		return &s.roster[idx]
	}
	return nil
}

// replaceCurrent returns a roster (and synthetic admin) with updated swapped in
func (s *Service) replaceCurrent(updated domain.Principal) ([]domain.Principal, *domain.Principal) {
	if s.admin != nil && s.admin.ID == updated.ID {
		return s.roster, &updated
	}
	next := cloneRoster(s.roster)
	if idx := s.indexByID(next, updated.ID); idx >= 0 {
		next[idx] = updated
	}
	return next, nil
}

func (s *Service) authorizeLocked() error {
	if !s.enforceAdmin {
		return nil
	}
	cur := s.currentLocked()
	if cur == nil || !cur.IsAdmin() || cur.IsBanned() {
		return domain.ErrForbidden
	}
	return nil
}

func (s *Service) isAdminCredential(email, password string) bool {
	emailOK := domain.NormalizeEmail(email) == domain.NormalizeEmail(s.adminEmail)
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) == 1
	return emailOK && passOK
}

func (s *Service) syntheticAdmin() domain.Principal {
	now := s.now()
	return domain.Principal{
		ID:        domain.AdminID,
		Name:      "admin",
		Email:     s.adminEmail,
		Role:      domain.RoleAdmin,
		Status:    domain.StatusActive,
		Favorites: []domain.Movie{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Service) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// emailTaken reports whether email belongs to another principal.
// The reserved admin email is always taken for roster principals.
func (s *Service) emailTaken(roster []domain.Principal, email, exceptID string) bool {
	if exceptID != domain.AdminID && domain.NormalizeEmail(email) == domain.NormalizeEmail(s.adminEmail) {
		return true
	}
	idx := s.indexByEmail(roster, email)
	return idx >= 0 && roster[idx].ID != exceptID
}

func (s *Service) indexByEmail(roster []domain.Principal, email string) int {
	want := domain.NormalizeEmail(email)
	for i, p := range roster {
		if domain.NormalizeEmail(p.Email) == want {
			return i
		}
	}
	return -1
}

func (s *Service) indexByID(roster []domain.Principal, id string) int {
	for i, p := range roster {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func cloneRoster(roster []domain.Principal) []domain.Principal {
	out := make([]domain.Principal, len(roster))
	for i, p := range roster {
		out[i] = p.Clone()
	}
	return out
}

// public strips secrets from a copy handed to callers
func public(p domain.Principal) domain.Principal {
	out := p.Clone()
	out.PasswordHash = ""
	return out
}
