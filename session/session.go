// Package session keeps per-visitor state (identity, flash messages, the
// post-login return path) in Redis, keyed by an id that travels in a signed
// cookie. A Session is loaded once per request and carried on the request
// context; nothing session-scoped lives in package globals.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const TTL = 7 * 24 * time.Hour

type Session struct {
	ID       string   `json:"-"`
	UserID   string   `json:"userID,omitempty"`
	Username string   `json:"username,omitempty"`
	ReturnTo string   `json:"returnTo,omitempty"`
	Success  []string `json:"success,omitempty"`
	Error    []string `json:"error,omitempty"`
}

func (s *Session) IsAuthenticated() bool {
	return s.UserID != ""
}

func (s *Session) FlashSuccess(msg string) {
	s.Success = append(s.Success, msg)
}

func (s *Session) FlashError(msg string) {
	s.Error = append(s.Error, msg)
}

// ConsumeFlashes returns all pending flash messages and clears them, so a
// message renders exactly once.
func (s *Session) ConsumeFlashes() (success, errs []string) {
	success, errs = s.Success, s.Error
	s.Success, s.Error = nil, nil
	return success, errs
}

// ConsumeReturnTo pops the saved pre-login path, if any.
func (s *Session) ConsumeReturnTo() string {
	path := s.ReturnTo
	s.ReturnTo = ""
	return path
}

// Login binds the session to a user and rotates the session id so a
// pre-auth id never becomes an authenticated one.
func (s *Session) Login(userID, username string) {
	s.ID = uuid.NewString()
	s.UserID = userID
	s.Username = username
}

// Logout drops the identity and rotates the id. The caller destroys the
// old server-side record and re-issues the cookie.
func (s *Session) Logout() {
	s.ID = uuid.NewString()
	s.UserID = ""
	s.Username = ""
	s.ReturnTo = ""
}

type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(id string) string {
	return "session:" + id
}

func (st *Store) New() *Session {
	return &Session{ID: uuid.NewString()}
}

// Get loads the session for id, or nil when it is unknown or expired.
func (st *Store) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := st.client.Get(ctx, key(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	sess := &Session{ID: id}
	if err := json.Unmarshal([]byte(raw), sess); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	return sess, nil
}

func (st *Store) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("session save: missing id")
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := st.client.Set(ctx, key(sess.ID), raw, TTL).Err(); err != nil {
		return fmt.Errorf("session set: %w", err)
	}
	return nil
}

func (st *Store) Destroy(ctx context.Context, id string) error {
	return st.client.Del(ctx, key(id)).Err()
}

type contextKey string

const sessionKey = contextKey("session")

func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// FromContext returns the request's session. The session middleware always
// installs one, so handlers past it can rely on a non-nil result.
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey).(*Session)
	return sess
}
