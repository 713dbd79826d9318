package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"dinoevent/models"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionParser turns a bearer token into a Session.
type SessionParser interface {
	Parse(token string) (models.Session, error)
}

// GuestSession is used for requests without a valid token. It has no
// viewer id, so it can browse and join but not wish or self-cancel.
var GuestSession = models.Session{Role: models.RoleGuest}

func WithSession(ctx context.Context, sess models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFrom returns the session stored by Sessions, or GuestSession.
func SessionFrom(ctx context.Context) models.Session {
	sess, ok := ctx.Value(sessionKey).(models.Session)
	if !ok {
		return GuestSession
	}
	return sess
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) >= 8 && strings.EqualFold(h[:7], "Bearer ") {
		return h[7:]
	}
	// Browsers cannot set headers on a websocket handshake.
	if websocket.IsWebSocketUpgrade(r) {
		return r.URL.Query().Get("token")
	}
	return ""
}

// Sessions attaches the caller's session to the request context. Missing or
// invalid tokens fall back to GuestSession instead of rejecting the request.
func Sessions(parser SessionParser) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			sess := GuestSession
			if token := bearerToken(r); token != "" {
				if parsed, err := parser.Parse(token); err == nil {
					sess = parsed
				} else {
					slog.Debug("ignoring session token", "path", r.URL.Path, "err", err)
				}
			}
			next(w, r.WithContext(WithSession(r.Context(), sess)), ps)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging logs method, path, status and duration of every request.
func Logging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			logger.Debug("websocket upgrade", "path", r.URL.Path, "remote", r.RemoteAddr)
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"duration", time.Since(start))
	})
}

// SecurityHeaders sets conservative defaults on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// Chain applies mws so that the first one runs outermost.
func Chain(mws ...func(httprouter.Handle) httprouter.Handle) func(httprouter.Handle) httprouter.Handle {
	return func(final httprouter.Handle) httprouter.Handle {
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}
