package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func readyz(t *testing.T, h *Handler, ctx context.Context) (int, result) {
	t.Helper()
	req := httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return rec.Code, body
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := New(Checker{Name: "grammars", Check: func(context.Context) error { return errors.New("never called") }})
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	tests := []struct {
		name       string
		checkers   []Checker
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "no checkers",
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{},
		},
		{
			name:       "all pass",
			checkers:   []Checker{{Name: "grammars", Check: ok}, {Name: "cache", Check: ok}},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"grammars": "ok", "cache": "ok"},
		},
		{
			name: "one fails",
			checkers: []Checker{
				{Name: "grammars", Check: func(context.Context) error { return errors.New("compiling") }},
				{Name: "cache", Check: ok},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"grammars": "fail: compiling", "cache": "ok"},
		},
		{
			name: "all fail",
			checkers: []Checker{
				{Name: "grammars", Check: func(context.Context) error { return errors.New("compiling") }},
				{Name: "cache", Check: func(context.Context) error { return errors.New("read-only") }},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"grammars": "fail: compiling", "cache": "fail: read-only"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, body := readyz(t, New(tt.checkers...), context.Background())
			if code != tt.wantStatus {
				t.Errorf("status = %d, want %d", code, tt.wantStatus)
			}
			wantStatus := "ok"
			if tt.wantStatus != http.StatusOK {
				wantStatus = "fail"
			}
			if body.Status != wantStatus {
				t.Errorf("body status = %q, want %q", body.Status, wantStatus)
			}
			for name, want := range tt.wantChecks {
				if body.Checks[name] != want {
					t.Errorf("check %s = %q, want %q", name, body.Checks[name], want)
				}
			}
		})
	}
}

func TestReadyzChecksRunConcurrently(t *testing.T) {
	t.Parallel()

	// Each checker waits for the other; a sequential run would time out.
	a, b := make(chan struct{}), make(chan struct{})
	pair := func(mine, theirs chan struct{}) func(context.Context) error {
		return func(ctx context.Context) error {
			close(mine)
			select {
			case <-theirs:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	h := New(Checker{Name: "a", Check: pair(a, b)}, Checker{Name: "b", Check: pair(b, a)})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if code, body := readyz(t, h, ctx); code != http.StatusOK {
		t.Errorf("status = %d, checks = %v", code, body.Checks)
	}
}

func TestReadyzRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	h := New(Checker{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if code, _ := readyz(t, h, ctx); code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
}

func TestGate(t *testing.T) {
	t.Parallel()

	var g Gate
	c := g.Checker("grammars")
	if c.Name != "grammars" {
		t.Errorf("name = %q", c.Name)
	}
	if err := c.Check(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("closed gate: err = %v, want ErrNotReady", err)
	}

	boom := errors.New("boom")
	g.Open(boom)
	if err := c.Check(context.Background()); !errors.Is(err, boom) {
		t.Errorf("failed gate: err = %v", err)
	}

	g.Open(nil)
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("open gate: err = %v", err)
	}
}

func TestRegisterRoutes(t *testing.T) {
	t.Parallel()

	var g Gate
	mux := http.NewServeMux()
	New(g.Checker("grammars")).Register(mux)

	tests := []struct {
		method, path string
		wantStatus   int
	}{
		{"GET", "/healthz", http.StatusOK},
		{"GET", "/readyz", http.StatusServiceUnavailable},
		{"POST", "/healthz", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.wantStatus {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, tt.wantStatus)
		}
	}
}
