package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/cinedex/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// SchemaVersion is the on-disk layout version written by this build
const SchemaVersion = 1

// Bucket names
var (
	bucketMeta       = []byte("meta")
	bucketPrincipals = []byte("principals")
	bucketSession    = []byte("session")
	bucketFavorites  = []byte("favorites")

	allBuckets = [][]byte{bucketMeta, bucketPrincipals, bucketSession, bucketFavorites}
)

// Keys
const (
	keySchema  = "schema"
	keyCurrent = "current"
)

// ErrSchemaTooNew is returned when the database was written by a newer build
var ErrSchemaTooNew = errors.New("session database schema is newer than supported")

// SessionStore implements domain.SessionStore using BoltDB.
type SessionStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache keyed by bucket:key (the only storage in memory-only mode)
	cache map[string][]byte
}

// NewSessionStore opens (or creates) the session database in dataDir.
// An empty dataDir selects memory-only mode.
func NewSessionStore(dataDir string) (*SessionStore, error) {
	if dataDir == "" {
		// Memory-only mode (no persistence)
		return &SessionStore{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, "cinedex.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return migrate(tx)
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SessionStore{db: db, cache: make(map[string][]byte)}, nil
}

// migrate stamps a fresh database and rejects newer layouts
func migrate(tx *bolt.Tx) error {
	meta := tx.Bucket(bucketMeta)
	raw := meta.Get([]byte(keySchema))
	if raw == nil {
		return meta.Put([]byte(keySchema), []byte(strconv.Itoa(SchemaVersion)))
	}
	v, err := strconv.Atoi(string(raw))
	if err != nil {
		return fmt.Errorf("corrupt schema version %q: %w", raw, err)
	}
	if v > SchemaVersion {
		return fmt.Errorf("%w: found %d, support %d", ErrSchemaTooNew, v, SchemaVersion)
	}
	// v1 is the only layout so far; older versions would be upgraded here
	return nil
}

func (s *SessionStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Roster ===

func (s *SessionStore) LoadRoster() ([]domain.Principal, error) {
	if s.db == nil {
		return s.loadRosterFromCache()
	}

	var records []principalRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		favs := tx.Bucket(bucketFavorites)
		return tx.Bucket(bucketPrincipals).ForEach(func(k, v []byte) error {
			rec, err := decodePrincipal(v)
			if err != nil {
				return fmt.Errorf("principal %s: %w", k, err)
			}
			if raw := favs.Get(k); raw != nil {
				movies, err := decodeFavorites(raw)
				if err != nil {
					return fmt.Errorf("favorites %s: %w", k, err)
				}
				rec.favorites = movies
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return toRoster(records), nil
}

func (s *SessionStore) SaveRoster(principals []domain.Principal) error {
	principalData, favoriteData, err := encodeRoster(principals)
	if err != nil {
		return err
	}

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			return writeRoster(tx, principalData, favoriteData)
		})
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	replacePrefix(s.cache, bucketPrincipals, principalData)
	replacePrefix(s.cache, bucketFavorites, favoriteData)
	s.mu.Unlock()
	return nil
}

// Commit replaces the roster and the session pointer in one transaction.
// When current is the synthetic admin its favorites are stored under domain.AdminID.
func (s *SessionStore) Commit(principals []domain.Principal, current *domain.Principal) error {
	principalData, favoriteData, err := encodeRoster(principals)
	if err != nil {
		return err
	}

	var sessionData []byte
	if current != nil {
		if sessionData, err = encodeSession(*current); err != nil {
			return err
		}
		if current.ID == domain.AdminID {
			fb, err := encodeFavorites(current.Favorites)
			if err != nil {
				return err
			}
			favoriteData[domain.AdminID] = fb
		}
	}

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			if err := writeRoster(tx, principalData, favoriteData); err != nil {
				return err
			}
			b := tx.Bucket(bucketSession)
			if sessionData == nil {
				return b.Delete([]byte(keyCurrent))
			}
			return b.Put([]byte(keyCurrent), sessionData)
		})
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	replacePrefix(s.cache, bucketPrincipals, principalData)
	replacePrefix(s.cache, bucketFavorites, favoriteData)
	sessionKey := string(bucketSession) + ":" + keyCurrent
	if sessionData == nil {
		delete(s.cache, sessionKey)
	} else {
		s.cache[sessionKey] = sessionData
	}
	s.mu.Unlock()
	return nil
}

// LoadFavorites returns the stored favorites of id, empty when none are stored
func (s *SessionStore) LoadFavorites(id string) ([]domain.Movie, error) {
	data, ok := s.get(bucketFavorites, id)
	if !ok {
		return []domain.Movie{}, nil
	}
	return decodeFavorites(data)
}

func encodeRoster(principals []domain.Principal) (principalData, favoriteData map[string][]byte, err error) {
	principalData = make(map[string][]byte, len(principals))
	favoriteData = make(map[string][]byte, len(principals))
	for i, p := range principals {
		pb, err := encodePrincipal(p, i)
		if err != nil {
			return nil, nil, err
		}
		fb, err := encodeFavorites(p.Favorites)
		if err != nil {
			return nil, nil, err
		}
		principalData[p.ID] = pb
		favoriteData[p.ID] = fb
	}
	return principalData, favoriteData, nil
}

func writeRoster(tx *bolt.Tx, principalData, favoriteData map[string][]byte) error {
	if err := rewriteBucket(tx, bucketPrincipals, principalData); err != nil {
		return err
	}
	return rewriteBucket(tx, bucketFavorites, favoriteData)
}

// === Session pointer ===

func (s *SessionStore) LoadSession() (*domain.Principal, error) {
	data, ok := s.get(bucketSession, keyCurrent)
	if !ok {
		return nil, nil
	}
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if rec.Version > SchemaVersion {
		return nil, ErrSchemaTooNew
	}
	if rec.Principal == nil {
		return nil, nil
	}
	p := rec.Principal.toDomain()
	p.Favorites = rec.Favorites
	return &p, nil
}

func (s *SessionStore) SaveSession(p *domain.Principal) error {
	if p == nil {
		return s.delete(bucketSession, keyCurrent)
	}
	data, err := encodeSession(*p)
	if err != nil {
		return err
	}
	return s.setRaw(bucketSession, keyCurrent, data)
}

func encodeSession(p domain.Principal) ([]byte, error) {
	pr := fromDomain(p, 0)
	pr.PasswordHash = "" // authoritative copy lives in the roster
	return json.Marshal(sessionRecord{
		Version:     SchemaVersion,
		PrincipalID: p.ID,
		Principal:   &pr,
		Favorites:   p.Favorites,
	})
}

// === Generic helpers ===

func (s *SessionStore) get(bucket []byte, key string) ([]byte, bool) {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return data, true
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil, false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return nil, false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return data, true
}

func (s *SessionStore) setRaw(bucket []byte, key string, data []byte) error {
	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucket).Put([]byte(key), data)
		})
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.cache[string(bucket)+":"+key] = data
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) delete(bucket []byte, key string) error {
	s.mu.Lock()
	delete(s.cache, string(bucket)+":"+key)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (s *SessionStore) loadRosterFromCache() ([]domain.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := string(bucketPrincipals) + ":"
	var records []principalRecord
	for k, v := range s.cache {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rec, err := decodePrincipal(v)
		if err != nil {
			return nil, err
		}
		if raw, ok := s.cache[string(bucketFavorites)+":"+rec.ID]; ok {
			movies, err := decodeFavorites(raw)
			if err != nil {
				return nil, err
			}
			rec.favorites = movies
		}
		records = append(records, rec)
	}
	return toRoster(records), nil
}

// replacePrefix swaps every cache entry of bucket for entries.
// Caller must hold the write lock.
func replacePrefix(cache map[string][]byte, bucket []byte, entries map[string][]byte) {
	prefix := string(bucket) + ":"
	for k := range cache {
		if strings.HasPrefix(k, prefix) && !reserved(bucket, strings.TrimPrefix(k, prefix)) {
			delete(cache, k)
		}
	}
	for id, data := range entries {
		cache[prefix+id] = data
	}
}

// reserved reports whether key outlives roster rewrites of bucket.
// The synthetic admin is never in the roster but keeps its favorites.
func reserved(bucket []byte, key string) bool {
	return bytes.Equal(bucket, bucketFavorites) && key == domain.AdminID
}

func rewriteBucket(tx *bolt.Tx, bucket []byte, entries map[string][]byte) error {
	b := tx.Bucket(bucket)
	var stale [][]byte
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		if _, keep := entries[string(k)]; !keep && !reserved(bucket, string(k)) {
			stale = append(stale, append([]byte(nil), k...))
		}
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	for id, data := range entries {
		if err := b.Put([]byte(id), data); err != nil {
			return err
		}
	}
	return nil
}

// toRoster restores roster order; bolt iterates by key, the map by chance
func toRoster(records []principalRecord) []domain.Principal {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Position < records[j].Position
	})
	principals := make([]domain.Principal, len(records))
	for i, rec := range records {
		principals[i] = rec.toDomain()
		principals[i].Favorites = rec.favorites
	}
	return principals
}
