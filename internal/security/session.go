package security

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"finmail/internal/models"
)

// SessionCookieName is the cookie carrying the session.
const SessionCookieName = "finmail_session"

const (
	valueUserID   = "user_id"
	valueUsername = "username"
	valueEmail    = "email"
)

// SessionManager establishes, reads and ends login sessions on top of any
// gorilla sessions.Store.
type SessionManager struct {
	store sessions.Store
	name  string
}

func NewSessionManager(store sessions.Store) *SessionManager {
	return &SessionManager{store: store, name: SessionCookieName}
}

// Start issues a fresh session for s. Any session the request already
// carried is replaced rather than reused.
func (m *SessionManager) Start(w http.ResponseWriter, r *http.Request, s *models.Session) error {
	sess, err := m.store.New(r, m.name)
	if sess == nil {
		return fmt.Errorf("new session: %w", err)
	}
	sess.ID = ""
	sess.IsNew = true
	sess.Values = map[interface{}]interface{}{
		valueUserID:   s.ID,
		valueUsername: s.Username,
		valueEmail:    s.Email,
	}
	if err := m.store.Save(r, w, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns the session carried by r, or ErrUnauthenticated when there
// is none or its cookie does not verify.
func (m *SessionManager) Load(r *http.Request) (*models.Session, error) {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		var cookieErr securecookie.Error
		if errors.As(err, &cookieErr) && cookieErr.IsDecode() {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.IsNew {
		return nil, ErrUnauthenticated
	}

	id, _ := sess.Values[valueUserID].(string)
	if id == "" {
		return nil, ErrUnauthenticated
	}
	username, _ := sess.Values[valueUsername].(string)
	email, _ := sess.Values[valueEmail].(string)
	return &models.Session{ID: id, Username: username, Email: email}, nil
}

// End clears the session and expires its cookie. Ending a request without
// a session is not an error.
func (m *SessionManager) End(w http.ResponseWriter, r *http.Request) error {
	sess, err := m.store.Get(r, m.name)
	if sess == nil {
		return fmt.Errorf("end session: %w", err)
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	if err := m.store.Save(r, w, sess); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

type sessionContextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext returns the session stored by WithSession.
func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*models.Session)
	return s, ok && s != nil
}
