package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"

	"dinoevent/models"
)

type fakeParser map[string]models.Session

func (p fakeParser) Parse(token string) (models.Session, error) {
	sess, ok := p[token]
	if !ok {
		return models.Session{}, errors.New("bad token")
	}
	return sess, nil
}

func TestSessions(t *testing.T) {
	admin := models.Session{Role: models.RoleAdmin, ViewerID: "v1"}
	parser := fakeParser{"good": admin}

	var got models.Session
	h := Sessions(parser)(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		got = SessionFrom(r.Context())
	})

	cases := []struct {
		name   string
		header string
		want   models.Session
	}{
		{"no header", "", GuestSession},
		{"valid", "Bearer good", admin},
		{"lowercase scheme", "bearer good", admin},
		{"invalid token", "Bearer nope", GuestSession},
		{"other scheme", "Basic good", GuestSession},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		h(httptest.NewRecorder(), req, nil)
		if got != tc.want {
			t.Errorf("%s: session = %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestQueryTokenOnlyForWebsocket(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/live?token=good", nil)
	if tok := bearerToken(req); tok != "" {
		t.Fatalf("plain request token = %q", tok)
	}
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	if tok := bearerToken(req); tok != "good" {
		t.Fatalf("upgrade token = %q", tok)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(httprouter.Handle) httprouter.Handle {
		return func(next httprouter.Handle) httprouter.Handle {
			return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
				order = append(order, name)
				next(w, r, ps)
			}
		}
	}
	h := Chain(mark("a"), mark("b"))(func(http.ResponseWriter, *http.Request, httprouter.Params) {
		order = append(order, "handler")
	})
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), nil)
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "handler" {
		t.Fatalf("order = %v", order)
	}
}

func TestLoggingRecordsStatus(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	Logging(discardLogger(), h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("code = %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
