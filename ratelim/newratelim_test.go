package ratelim

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
)

func TestLimitPerIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	h := rl.Limit(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusNoContent)
	})

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h(rec, req, nil)
		return rec.Code
	}

	// Different ports of the same host share a bucket.
	if c := call("10.0.0.1:1000"); c != http.StatusNoContent {
		t.Fatalf("first: %d", c)
	}
	if c := call("10.0.0.1:2000"); c != http.StatusNoContent {
		t.Fatalf("second: %d", c)
	}
	if c := call("10.0.0.1:3000"); c != http.StatusTooManyRequests {
		t.Fatalf("third: %d", c)
	}
	if c := call("10.0.0.2:1000"); c != http.StatusNoContent {
		t.Fatalf("other ip: %d", c)
	}
}

func TestIdleVisitorsSwept(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	base := time.Now()
	rl.now = func() time.Time { return base }
	rl.getLimiter("a")

	rl.now = func() time.Time { return base.Add(idleTTL + time.Second) }
	rl.getLimiter("b")
	if _, ok := rl.visitors["a"]; ok {
		t.Fatal("idle visitor not removed")
	}
}
