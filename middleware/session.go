package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/asehgal-dev/wanderlust/session"
)

// SessionLoader resolves the signed cookie to a Session before routing and
// persists any mutations after the handler chain finishes. A missing,
// tampered or expired cookie simply yields a fresh anonymous session.
type SessionLoader struct {
	store  *session.Store
	codec  *session.Codec
	logger *zap.Logger
}

func NewSessionLoader(store *session.Store, codec *session.Codec, logger *zap.Logger) *SessionLoader {
	return &SessionLoader{store: store, codec: codec, logger: logger}
}

func (sl *SessionLoader) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *session.Session

		if cookie, err := r.Cookie(session.CookieName); err == nil {
			if sid, err := sl.codec.Decode(cookie.Value); err == nil {
				sess, err = sl.store.Get(r.Context(), sid)
				if err != nil {
					sl.logger.Warn("session load failed", zap.Error(err))
					sess = nil
				}
			}
		}

		if sess == nil {
			sess = sl.store.New()
			if err := sl.codec.SetCookie(w, sess.ID); err != nil {
				sl.logger.Error("failed to set session cookie", zap.Error(err))
			}
		}

		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))

		// Save with a fresh context: the request context may already be
		// canceled once the client has its response.
		if err := sl.store.Save(context.Background(), sess); err != nil {
			sl.logger.Warn("session save failed", zap.String("session", sess.ID), zap.Error(err))
		}
	})
}
