package session

import (
	"errors"
	"testing"

	"github.com/mmcdole/cinedex/internal/domain"
	"github.com/mmcdole/cinedex/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T, dataDir string, opts ...Option) *Service {
	t.Helper()
	st, err := store.NewSessionStore(dataDir)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	opts = append([]Option{WithBcryptCost(bcrypt.MinCost)}, opts...)
	svc, err := NewService(st, nil, opts...)
	require.NoError(t, err)
	return svc
}

func signup(t *testing.T, svc *Service, name, email, password string) *domain.Principal {
	t.Helper()
	p, err := svc.CreatePrincipal(domain.SignupData{Name: name, Email: email, Password: password})
	require.NoError(t, err)
	return p
}

func TestCreatePrincipal(t *testing.T) {
	svc := newService(t, "")

	p := signup(t, svc, "Ann", "ann@x.io", "pw1")
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, domain.RoleUser, p.Role)
	assert.Equal(t, domain.StatusActive, p.Status)
	assert.Empty(t, p.Favorites)
	assert.Empty(t, p.PasswordHash, "hash never leaves the store")

	_, ok := svc.Current()
	assert.False(t, ok, "signup does not log in")
}

func TestDuplicateEmailLeavesRosterUnchanged(t *testing.T) {
	svc := newService(t, "")
	signup(t, svc, "Ann", "ann@x.io", "pw1")

	_, err := svc.CreatePrincipal(domain.SignupData{Name: "Ann2", Email: "ANN@x.io ", Password: "pw2"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	all, err := svc.Principals()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Ann", all[0].Name)
}

func TestCreatePrincipalValidates(t *testing.T) {
	svc := newService(t, "")

	cases := map[string]domain.SignupData{
		"missing name":  {Email: "a@x.io", Password: "pw"},
		"bad email":     {Name: "A", Email: "not-an-email", Password: "pw"},
		"no password":   {Name: "A", Email: "a@x.io"},
		"long password": {Name: "A", Email: "a@x.io", Password: string(make([]byte, 73))},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreatePrincipal(data)
			assert.ErrorIs(t, err, domain.ErrInvalidSignup)
		})
	}
	assert.Equal(t, 0, svc.Stats().Total)
}

func TestAuthenticate(t *testing.T) {
	svc := newService(t, "")
	ann := signup(t, svc, "Ann", "ann@x.io", "pw1")

	_, err := svc.Authenticate("nobody@x.io", "pw1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Authenticate("ann@x.io", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, ok := svc.Current()
	assert.False(t, ok)

	p, err := svc.Authenticate("Ann@X.io", "pw1")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, p.ID)

	cur, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, ann.ID, cur.ID)
}

func TestBannedLoginFailsRegardlessOfPassword(t *testing.T) {
	svc := newService(t, "")
	ann := signup(t, svc, "Ann", "ann@x.io", "pw1")
	require.NoError(t, svc.BanPrincipal(ann.ID))

	for _, pw := range []string{"pw1", "wrong"} {
		_, err := svc.Authenticate("ann@x.io", pw)
		assert.ErrorIs(t, err, domain.ErrAccountBanned, "password %q", pw)
	}

	require.NoError(t, svc.UnbanPrincipal(ann.ID))
	_, err := svc.Authenticate("ann@x.io", "pw1")
	assert.NoError(t, err)
}

func TestBanCurrentPrincipalForcesLogout(t *testing.T) {
	svc := newService(t, "")
	ann := signup(t, svc, "Ann", "ann@x.io", "pw1")
	_, err := svc.Authenticate("ann@x.io", "pw1")
	require.NoError(t, err)

	_, err = svc.ToggleFavorite(domain.Movie{ID: 550, Title: "Fight Club"})
	require.NoError(t, err)

	require.NoError(t, svc.BanPrincipal(ann.ID))
	_, ok := svc.Current()
	assert.False(t, ok)
	assert.Empty(t, svc.Favorites())

	_, err = svc.Authenticate("ann@x.io", "pw1")
	assert.ErrorIs(t, err, domain.ErrAccountBanned)
}

func TestDeleteCurrentPrincipalForcesLogout(t *testing.T) {
	svc := newService(t, "")
	ann := signup(t, svc, "Ann", "ann@x.io", "pw1")
	_, err := svc.Authenticate("ann@x.io", "pw1")
	require.NoError(t, err)

	require.NoError(t, svc.DeletePrincipal(ann.ID))
	_, ok := svc.Current()
	assert.False(t, ok)
	assert.Equal(t, 0, svc.Stats().Total)

	assert.ErrorIs(t, svc.DeletePrincipal(ann.ID), domain.ErrNotFound)
	assert.ErrorIs(t, svc.BanPrincipal("missing"), domain.ErrNotFound)
}

func TestToggleFavoriteRoundTrip(t *testing.T) {
	svc := newService(t, "")
	signup(t, svc, "Ann", "ann@x.io", "pw1")

	_, err := svc.ToggleFavorite(domain.Movie{ID: 1})
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)

	_, err = svc.Authenticate("ann@x.io", "pw1")
	require.NoError(t, err)

	movie := domain.Movie{ID: 550, Title: "Fight Club", VoteAverage: 8.4}
	added, err := svc.ToggleFavorite(movie)
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, svc.IsFavorite(550))
	require.Len(t, svc.Favorites(), 1)
	assert.Equal(t, "Fight Club", svc.Favorites()[0].Title)

	added, err = svc.ToggleFavorite(movie)
	require.NoError(t, err)
	assert.False(t, added)
	assert.False(t, svc.IsFavorite(550))
	assert.Empty(t, svc.Favorites())
}

func TestFavoritesPreserveInsertionOrder(t *testing.T) {
	svc := newService(t, "")
	signup(t, svc, "Ann", "ann@x.io", "pw1")
	_, err := svc.Authenticate("ann@x.io", "pw1")
	require.NoError(t, err)

	for _, id := range []int{3, 1, 2} {
		_, err := svc.ToggleFavorite(domain.Movie{ID: id})
		require.NoError(t, err)
	}
	_, err = svc.ToggleFavorite(domain.Movie{ID: 1})
	require.NoError(t, err)

	var ids []int
	for _, m := range svc.Favorites() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []int{3, 2}, ids)
}

func TestAdminCredentialsYieldSyntheticAdmin(t *testing.T) {
	svc := newService(t, "")

	p, err := svc.Authenticate(DefaultAdminEmail, DefaultAdminPassword)
	require.NoError(t, err)
	assert.Equal(t, domain.AdminID, p.ID)
	assert.True(t, p.IsAdmin())
	assert.Equal(t, 0, svc.Stats().Total, "synthetic admin is not in the roster")

	_, err = svc.ToggleFavorite(domain.Movie{ID: 7})
	require.NoError(t, err)
	assert.True(t, svc.IsFavorite(7))

	require.NoError(t, svc.Logout())
	_, ok := svc.Current()
	assert.False(t, ok)
}

func TestWithAdminCredentials(t *testing.T) {
	svc := newService(t, "", WithAdminCredentials("root@local", "s3cret"))

	_, err := svc.Authenticate(DefaultAdminEmail, DefaultAdminPassword)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p, err := svc.Authenticate("root@local", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, domain.AdminID, p.ID)
}

func TestAuthorization(t *testing.T) {
	svc := newService(t, "", WithAuthorization())
	ann := signup(t, svc, "Ann", "ann@x.io", "pw1")
	bob := signup(t, svc, "Bob", "bob@x.io", "pw2")

	// anonymous
	assert.ErrorIs(t, svc.BanPrincipal(bob.ID), domain.ErrForbidden)
	_, err := svc.Principals()
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// plain user
	_, err = svc.Authenticate("ann@x.io", "pw1")
	require.NoError(t, err)
	assert.ErrorIs(t, svc.SetRole(ann.ID, domain.RoleAdmin), domain.ErrForbidden)

	// admin
	_, err = svc.Authenticate(DefaultAdminEmail, DefaultAdminPassword)
	require.NoError(t, err)
	require.NoError(t, svc.SetRole(ann.ID, domain.RoleAdmin))
	require.NoError(t, svc.BanPrincipal(bob.ID))

	// promoted user can moderate
	_, err = svc.Authenticate("ann@x.io", "pw1")
	require.NoError(t, err)
	require.NoError(t, svc.UnbanPrincipal(bob.ID))

	st := svc.Stats()
	assert.Equal(t, domain.RosterStats{Total: 2, Admins: 1, Active: 2, Banned: 0}, st)
}

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	svc := newService(t, "")
	ann := signup(t, svc, "Ann", "ann@x.io", "pw1")
	assert.ErrorIs(t, svc.SetRole(ann.ID, "superuser"), domain.ErrInvalidSignup)
}

func TestUpdatePrincipal(t *testing.T) {
	svc := newService(t, "")
	signup(t, svc, "Ann", "ann@x.io", "pw1")
	signup(t, svc, "Bob", "bob@x.io", "pw2")

	name := "Annie"
	_, err := svc.UpdatePrincipal(domain.ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)

	_, err = svc.Authenticate("ann@x.io", "pw1")
	require.NoError(t, err)

	taken := "bob@x.io"
	_, err = svc.UpdatePrincipal(domain.ProfileUpdate{Email: &taken})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	pw := "new-pw"
	p, err := svc.UpdatePrincipal(domain.ProfileUpdate{Name: &name, Password: &pw})
	require.NoError(t, err)
	assert.Equal(t, "Annie", p.Name)
	assert.Equal(t, "ann@x.io", p.Email, "nil fields untouched")

	require.NoError(t, svc.Logout())
	_, err = svc.Authenticate("ann@x.io", "pw1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Authenticate("ann@x.io", "new-pw")
	assert.NoError(t, err)
}

func TestSearchPrincipals(t *testing.T) {
	svc := newService(t, "")
	signup(t, svc, "Ann Lee", "ann@x.io", "pw")
	signup(t, svc, "Bob Stone", "bob@y.io", "pw")
	signup(t, svc, "Annabel Ray", "ray@x.io", "pw")

	got, err := svc.SearchPrincipals("ann")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, p := range got {
		assert.Contains(t, p.Name, "Ann")
	}

	all, err := svc.SearchPrincipals("  ")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := svc.SearchPrincipals("zzz")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSubscribeNotifiesAfterMutation(t *testing.T) {
	svc := newService(t, "")

	var calls int
	var sawPrincipal bool
	unsubscribe := svc.Subscribe(func() {
		calls++
		// listeners may read back through the store without deadlocking
		sawPrincipal = svc.Stats().Total > 0
	})

	signup(t, svc, "Ann", "ann@x.io", "pw1")
	assert.Equal(t, 1, calls)
	assert.True(t, sawPrincipal)

	_, err := svc.CreatePrincipal(domain.SignupData{Name: "Dup", Email: "ann@x.io", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "failed mutations do not notify")

	unsubscribe()
	_, err = svc.Authenticate("ann@x.io", "pw1")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestSessionRestoredAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	st, err := store.NewSessionStore(dir)
	require.NoError(t, err)
	svc, err := NewService(st, nil, WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	ann := signup(t, svc, "Ann", "ann@x.io", "pw1")
	_, err = svc.Authenticate("ann@x.io", "pw1")
	require.NoError(t, err)
	_, err = svc.ToggleFavorite(domain.Movie{ID: 550, Title: "Fight Club"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	restarted := newService(t, dir)
	cur, ok := restarted.Current()
	require.True(t, ok)
	assert.Equal(t, ann.ID, cur.ID)
	assert.True(t, restarted.IsFavorite(550))
}

func TestStaleSessionDiscardedOnStart(t *testing.T) {
	dir := t.TempDir()

	st, err := store.NewSessionStore(dir)
	require.NoError(t, err)
	svc, err := NewService(st, nil, WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	ann := signup(t, svc, "Ann", "ann@x.io", "pw1")
	_, err = svc.Authenticate("ann@x.io", "pw1")
	require.NoError(t, err)

	// Ban behind the service's back so the pointer survives
	roster, err := st.LoadRoster()
	require.NoError(t, err)
	roster[0].Status = domain.StatusBanned
	require.NoError(t, st.SaveRoster(roster))
	require.NoError(t, st.Close())

	restarted := newService(t, dir)
	_, ok := restarted.Current()
	assert.False(t, ok)

	all, err := restarted.Principals()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, ann.ID, all[0].ID)
}

type failingStore struct {
	domain.SessionStore
	fail bool
}

func (f *failingStore) Commit(roster []domain.Principal, current *domain.Principal) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.SessionStore.Commit(roster, current)
}

func TestFailedPersistLeavesStateUnchanged(t *testing.T) {
	mem, err := store.NewSessionStore("")
	require.NoError(t, err)
	fs := &failingStore{SessionStore: mem}

	svc, err := NewService(fs, nil, WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	signup(t, svc, "Ann", "ann@x.io", "pw1")

	fs.fail = true
	_, err = svc.CreatePrincipal(domain.SignupData{Name: "Bob", Email: "bob@x.io", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, 1, svc.Stats().Total)
	_, err = svc.Authenticate("ann@x.io", "pw1")
	require.Error(t, err)
	_, ok := svc.Current()
	assert.False(t, ok)
}

func TestFailedCommitWritesNothingToDisk(t *testing.T) {
	dir := t.TempDir()
	disk, err := store.NewSessionStore(dir)
	require.NoError(t, err)
	fs := &failingStore{SessionStore: disk}

	svc, err := NewService(fs, nil, WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	signup(t, svc, "Ann", "ann@x.io", "pw1")

	fs.fail = true
	_, err = svc.CreatePrincipal(domain.SignupData{Name: "Bob", Email: "bob@x.io", Password: "pw"})
	require.Error(t, err)
	_, err = svc.Authenticate("ann@x.io", "pw1")
	require.Error(t, err)
	require.NoError(t, disk.Close())

	restarted := newService(t, dir)
	assert.Equal(t, 1, restarted.Stats().Total, "failed signup must not reappear")
	_, ok := restarted.Current()
	assert.False(t, ok, "failed login must not leave a session pointer")
}

func TestAdminFavoritesSurviveLogout(t *testing.T) {
	dir := t.TempDir()
	svc := newService(t, dir)

	_, err := svc.Authenticate(DefaultAdminEmail, DefaultAdminPassword)
	require.NoError(t, err)
	_, err = svc.ToggleFavorite(domain.Movie{ID: 550, Title: "Fight Club"})
	require.NoError(t, err)

	// roster writes keep the admin list
	signup(t, svc, "Ann", "ann@x.io", "pw1")
	require.NoError(t, svc.Logout())
	assert.Empty(t, svc.Favorites())

	_, err = svc.Authenticate(DefaultAdminEmail, DefaultAdminPassword)
	require.NoError(t, err)
	assert.True(t, svc.IsFavorite(550))
	require.NoError(t, svc.Logout())
}

func TestAdminFavoritesSurviveRestart(t *testing.T) {
	dir := t.TempDir()

	st, err := store.NewSessionStore(dir)
	require.NoError(t, err)
	svc, err := NewService(st, nil, WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	_, err = svc.Authenticate(DefaultAdminEmail, DefaultAdminPassword)
	require.NoError(t, err)
	_, err = svc.ToggleFavorite(domain.Movie{ID: 7, Title: "Se7en"})
	require.NoError(t, err)
	require.NoError(t, svc.Logout())
	require.NoError(t, st.Close())

	restarted := newService(t, dir)
	_, err = restarted.Authenticate(DefaultAdminEmail, DefaultAdminPassword)
	require.NoError(t, err)
	assert.True(t, restarted.IsFavorite(7))
}

func TestReservedAdminEmailIsTaken(t *testing.T) {
	svc := newService(t, "")

	_, err := svc.CreatePrincipal(domain.SignupData{Name: "Eve", Email: " ADMIN@admin.com", Password: "pw"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	signup(t, svc, "Ann", "ann@x.io", "pw1")
	_, err = svc.Authenticate("ann@x.io", "pw1")
	require.NoError(t, err)

	email := "Admin@Admin.com"
	_, err = svc.UpdatePrincipal(domain.ProfileUpdate{Email: &email})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	cur, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, "ann@x.io", cur.Email)
}

func TestSignupLoginFavoriteBanWalkthrough(t *testing.T) {
	svc := newService(t, "")

	ann, err := svc.CreatePrincipal(domain.SignupData{Name: "Ann", Email: "ann@x.com", Password: "pw"})
	require.NoError(t, err)
	all, err := svc.Principals()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.StatusActive, all[0].Status)
	assert.Equal(t, domain.RoleUser, all[0].Role)
	assert.Empty(t, all[0].Favorites)

	_, err = svc.Authenticate("ann@x.com", "pw")
	require.NoError(t, err)
	cur, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, "Ann", cur.Name)

	fightClub := domain.Movie{ID: 550, Title: "Fight Club"}
	_, err = svc.ToggleFavorite(fightClub)
	require.NoError(t, err)
	cur, _ = svc.Current()
	assert.Equal(t, []domain.Movie{fightClub}, cur.Favorites)

	require.NoError(t, svc.BanPrincipal(ann.ID))
	_, ok = svc.Current()
	assert.False(t, ok)
}
