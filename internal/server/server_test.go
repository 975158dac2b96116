package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/spokenform/internal/normalizer"
	"github.com/MrWong99/spokenform/internal/observe"
	"github.com/MrWong99/spokenform/internal/registry"
	"github.com/MrWong99/spokenform/internal/server"
	"github.com/MrWong99/spokenform/pkg/fst"
	"github.com/MrWong99/spokenform/pkg/grammar"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

// digits reads single digits.
func digits(registry.Options) (*grammar.PackSet, error) {
	cardinal, err := grammar.Build("cardinal", 1.1, func() (*fst.FST, *fst.FST, error) {
		unit := grammar.Words(map[string]string{"1": "one", "2": "two", "3": "three", "4": "four"})
		return grammar.Wrap("cardinal", grammar.Field("integer", unit)),
			grammar.Unwrap("cardinal", grammar.Read("integer", nil)), nil
	})
	if err != nil {
		return nil, err
	}
	punct, err := grammar.PunctuationPack(grammar.Punct)
	if err != nil {
		return nil, err
	}
	word, err := grammar.WordPack()
	if err != nil {
		return nil, err
	}
	return &grammar.PackSet{Language: "digits", Packs: []grammar.Pack{cardinal}, Punctuation: &punct, Word: &word}, nil
}

func newServer(t *testing.T, ready bool) (*server.Server, *observe.Metrics) {
	t.Helper()
	m := testMetrics(t)
	s := server.New(server.WithLogger(quiet()), server.WithMetrics(m), server.WithMaxBodyBytes(256))
	if ready {
		r := registry.New()
		r.Register("digits", digits)
		n, err := normalizer.New(r, "digits", normalizer.WithLogger(quiet()), normalizer.WithMetrics(m))
		if err != nil {
			t.Fatalf("normalizer.New: %v", err)
		}
		s.SetNormalizer(n)
	}
	return s, m
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	var out map[string]any
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
			t.Fatalf("decode JSON: %v", err)
		}
	}
	return rec.Code, out
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	s, _ := newServer(t, true)
	s.SetDefaults(normalizer.Options{PunctuationPostProcess: true})
	h := s.Handler()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKey    string
		want       any
	}{
		{
			name:       "single text with default post-processing",
			body:       `{"text": "take 2."}`,
			wantStatus: http.StatusOK,
			wantKey:    "normalized",
			want:       "take two.",
		},
		{
			name:       "post-processing turned off",
			body:       `{"text": "take 2.", "punct_post_process": false}`,
			wantStatus: http.StatusOK,
			wantKey:    "normalized",
			want:       "take two .",
		},
		{
			name:       "pre-processing turned on",
			body:       `{"text": "see [3]", "punct_pre_process": true}`,
			wantStatus: http.StatusOK,
			wantKey:    "normalized",
			want:       "see [three]",
		},
		{
			name:       "batch keeps order",
			body:       `{"texts": ["1", "x", "4 3"]}`,
			wantStatus: http.StatusOK,
			wantKey:    "normalized_list",
			want:       []any{"one", "x", "four three"},
		},
		{
			name:       "empty batch",
			body:       `{"texts": []}`,
			wantStatus: http.StatusOK,
			wantKey:    "normalized_list",
			want:       []any{},
		},
		{
			name:       "both text and texts",
			body:       `{"text": "1", "texts": ["2"]}`,
			wantStatus: http.StatusBadRequest,
			wantKey:    "error",
		},
		{
			name:       "neither text nor texts",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantKey:    "error",
		},
		{
			name:       "unknown field",
			body:       `{"text": "1", "lang": "en"}`,
			wantStatus: http.StatusBadRequest,
			wantKey:    "error",
		},
		{
			name:       "malformed",
			body:       `{"text": `,
			wantStatus: http.StatusBadRequest,
			wantKey:    "error",
		},
		{
			name:       "too large",
			body:       `{"text": "` + strings.Repeat("a", 512) + `"}`,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantKey:    "error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, body := do(t, h, "POST", "/v1/normalize", tt.body)
			if code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %v)", code, tt.wantStatus, body)
			}
			got, ok := body[tt.wantKey]
			if !ok {
				t.Fatalf("response has no %q: %v", tt.wantKey, body)
			}
			if tt.want == nil {
				return
			}
			gotJSON, _ := json.Marshal(got)
			wantJSON, _ := json.Marshal(tt.want)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("%s = %s, want %s", tt.wantKey, gotJSON, wantJSON)
			}
		})
	}
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	s, _ := newServer(t, false)
	h := s.Handler()

	if code, _ := do(t, h, "GET", "/readyz", ""); code != http.StatusServiceUnavailable {
		t.Errorf("readyz before grammars = %d", code)
	}
	if code, _ := do(t, h, "GET", "/healthz", ""); code != http.StatusOK {
		t.Errorf("healthz = %d", code)
	}
	if code, _ := do(t, h, "POST", "/v1/normalize", `{"text": "1"}`); code != http.StatusServiceUnavailable {
		t.Errorf("normalize before grammars = %d", code)
	}
	if code, _ := do(t, h, "GET", "/v1/info", ""); code != http.StatusServiceUnavailable {
		t.Errorf("info before grammars = %d", code)
	}

	s.Fail(errors.New("compilation failed"))
	code, body := do(t, h, "GET", "/readyz", "")
	if code != http.StatusServiceUnavailable {
		t.Errorf("readyz after failure = %d", code)
	}
	if checks, _ := body["checks"].(map[string]any); checks["grammars"] != "fail: compilation failed" {
		t.Errorf("checks = %v", body["checks"])
	}

	ready, _ := newServer(t, true)
	h = ready.Handler()
	if code, _ := do(t, h, "GET", "/readyz", ""); code != http.StatusOK {
		t.Errorf("readyz after grammars = %d", code)
	}
	ready.Fail(errors.New("rebuild failed"))
	if code, _ := do(t, h, "GET", "/readyz", ""); code != http.StatusOK {
		t.Errorf("readyz after failed rebuild = %d, want previous normalizer kept", code)
	}
	code, body = do(t, h, "GET", "/v1/info", "")
	if code != http.StatusOK || body["language"] != "digits" {
		t.Errorf("info = %d %v", code, body)
	}
	if packs, _ := body["packs"].([]any); len(packs) == 0 {
		t.Errorf("info packs = %v", body["packs"])
	}
}

func TestRoutes(t *testing.T) {
	t.Parallel()

	s, _ := newServer(t, true)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("metrics = %d", rec.Code)
	}
	if code, _ := do(t, h, "GET", "/v1/normalize", ""); code != http.StatusMethodNotAllowed {
		t.Errorf("GET normalize = %d", code)
	}
	if code, _ := do(t, h, "GET", "/nope", ""); code != http.StatusNotFound {
		t.Errorf("unknown route = %d", code)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	s, _ := newServer(t, true)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln, time.Second) }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/v1/normalize", "application/json", strings.NewReader(`{"text": "3"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var body struct {
		Normalized string `json:"normalized"`
	}
	err = json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if err != nil || body.Normalized != "three" {
		t.Errorf("normalized = %q, err = %v", body.Normalized, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestRequestMetricsCarryLanguage(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}
	r := registry.New()
	r.Register("digits", digits)
	n, err := normalizer.New(r, "digits", normalizer.WithLogger(quiet()), normalizer.WithMetrics(m))
	if err != nil {
		t.Fatal(err)
	}
	s := server.New(server.WithLogger(quiet()), server.WithMetrics(m))
	s.SetNormalizer(n)
	h := s.Handler()

	do(t, h, "POST", "/v1/normalize", `{"text": "1"}`)
	do(t, h, "POST", "/v1/normalize", `{"texts": ["1", "2"]}`)
	do(t, h, "POST", "/v1/normalize", `{"texts": ["3"]}`)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	batches := make(map[bool]uint64)
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "spokenform.http.request.duration" {
				continue
			}
			hist, _ := met.Data.(metricdata.Histogram[float64])
			for _, dp := range hist.DataPoints {
				route, _ := dp.Attributes.Value("route")
				lang, _ := dp.Attributes.Value("language")
				batch, _ := dp.Attributes.Value("batch")
				if route.AsString() != "POST /v1/normalize" || lang.AsString() != "digits" {
					t.Errorf("data point route=%q language=%q", route.AsString(), lang.AsString())
				}
				batches[batch.AsBool()] += dp.Count
			}
		}
	}
	if batches[false] != 1 || batches[true] != 2 {
		t.Errorf("requests by batch = %v, want 1 single and 2 batches", batches)
	}
}
