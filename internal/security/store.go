package security

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"finmail/internal/db"
)

// Session store backends.
const (
	BackendDatabase = "database"
	BackendCookie   = "cookie"
	BackendMemory   = "memory"
)

// StoreConfig selects and tunes a session store.
type StoreConfig struct {
	Backend string
	Secret  string
	MaxAge  int // seconds
	Secure  bool
}

// SessionRepository persists encoded session data for the server-side
// store. *db.DB implements it.
type SessionRepository interface {
	SaveSession(ctx context.Context, id, data string, expiresAt time.Time) error
	LoadSession(ctx context.Context, id string) (string, error)
	DeleteSession(ctx context.Context, id string) error
}

// NewStore builds the sessions.Store named by cfg.Backend. repo is only
// used by the database backend.
func NewStore(cfg StoreConfig, repo SessionRepository) (sessions.Store, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	key := []byte(cfg.Secret)
	opts := defaultOptions(cfg)

	switch cfg.Backend {
	case BackendDatabase, "":
		if repo == nil {
			return nil, errors.New("database session store needs a repository")
		}
		st := NewServerStore(repo, key)
		st.Options = opts
		st.MaxAge(opts.MaxAge)
		return st, nil
	case BackendCookie:
		st := sessions.NewCookieStore(key)
		st.Options = opts
		st.MaxAge(opts.MaxAge)
		return st, nil
	case BackendMemory:
		st := NewMemoryStore(key)
		st.Options = opts
		st.MaxAge(opts.MaxAge)
		return st, nil
	}
	return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
}

func defaultOptions(cfg StoreConfig) *sessions.Options {
	maxAge := cfg.MaxAge
	if maxAge == 0 {
		maxAge = 7 * 24 * 60 * 60
	}
	return &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ServerStore keeps session values server-side. The cookie only holds the
// signed session id.
type ServerStore struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options

	repo SessionRepository
	now  func() time.Time
}

func NewServerStore(repo SessionRepository, keyPairs ...[]byte) *ServerStore {
	st := &ServerStore{
		Codecs: securecookie.CodecsFromPairs(keyPairs...),
		Options: &sessions.Options{
			Path:     "/",
			MaxAge:   86400 * 7,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		repo: repo,
		now:  time.Now,
	}
	st.MaxAge(st.Options.MaxAge)
	return st
}

// NewMemoryStore is a ServerStore backed by a process-local map.
func NewMemoryStore(keyPairs ...[]byte) *ServerStore {
	return NewServerStore(newMemoryRepository(), keyPairs...)
}

// MaxAge sets the maximum age for the store and its codecs.
func (s *ServerStore) MaxAge(age int) {
	s.Options.MaxAge = age
	for _, codec := range s.Codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(age)
		}
	}
}

func (s *ServerStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

func (s *ServerStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	if err := securecookie.DecodeMulti(name, c.Value, &session.ID, s.Codecs...); err != nil {
		return session, err
	}

	data, err := s.repo.LoadSession(r.Context(), session.ID)
	if errors.Is(err, db.ErrNotFound) {
		session.ID = ""
		return session, nil
	}
	if err != nil {
		return session, err
	}
	if err := securecookie.DecodeMulti(name, data, &session.Values, s.Codecs...); err != nil {
		return session, err
	}
	session.IsNew = false
	return session, nil
}

// Save persists the session, or deletes it when MaxAge is not positive.
func (s *ServerStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	ctx := r.Context()
	if session.Options.MaxAge <= 0 {
		if session.ID != "" {
			if err := s.repo.DeleteSession(ctx, session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = strings.TrimRight(
			base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)), "=")
	}

	data, err := securecookie.EncodeMulti(session.Name(), session.Values, s.Codecs...)
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(time.Duration(session.Options.MaxAge) * time.Second)
	if err := s.repo.SaveSession(ctx, session.ID, data, expiresAt); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

type memoryEntry struct {
	data      string
	expiresAt time.Time
}

type memoryRepository struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{entries: make(map[string]memoryEntry)}
}

func (m *memoryRepository) SaveSession(_ context.Context, id, data string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = memoryEntry{data: data, expiresAt: expiresAt}
	return nil
}

func (m *memoryRepository) LoadSession(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || !e.expiresAt.After(time.Now()) {
		delete(m.entries, id)
		return "", db.ErrNotFound
	}
	return e.data, nil
}

func (m *memoryRepository) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}
