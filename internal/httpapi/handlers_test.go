package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/siteupbot/internal/domain"
	"github.com/hamed0406/siteupbot/internal/repo/memory"
)

// ---- test helpers ----

func setupRouter(t *testing.T, keys []string) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.New()
	srv := NewServer(zap.NewNop(), store, Options{
		Keys: keys,
		// very high rate limits to avoid flakiness in tests
		ReqPerMin: 10_000,
		Burst:     10_000,
	})
	return srv.Router(), store
}

func get(t *testing.T, url, key string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ---- tests ----

func TestHealthz(t *testing.T) {
	h, _ := setupRouter(t, []string{"k"})
	ts := httptest.NewServer(h)
	defer ts.Close()

	if resp := get(t, ts.URL+"/healthz", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz should not need a key, got %d", resp.StatusCode)
	}
}

func TestStatus_BeforeFirstCycle(t *testing.T) {
	h, _ := setupRouter(t, nil)
	ts := httptest.NewServer(h)
	defer ts.Close()

	if resp := get(t, ts.URL+"/api/status", ""); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("want 503 before first cycle, got %d", resp.StatusCode)
	}
}

func TestStatus_ReturnsLatestSnapshot(t *testing.T) {
	h, store := setupRouter(t, []string{"pub_test"})
	ts := httptest.NewServer(h)
	defer ts.Close()

	err := store.Save(context.Background(), domain.Snapshot{
		TargetURL: "https://example.com/logo.png",
		Current: domain.StatusRecord{
			Online:         true,
			ResponseTimeMS: 87,
			Message:        "Example is online. Response time: 87ms",
			Timestamp:      time.Now().UTC(),
			StatusCode:     200,
			ContentType:    "image/png",
		},
		Threshold: 3,
		Cycles:    4,
	})
	if err != nil {
		t.Fatal(err)
	}

	if resp := get(t, ts.URL+"/api/status", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 without key, got %d", resp.StatusCode)
	}

	resp := get(t, ts.URL+"/api/status", "pub_test")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var got domain.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Current.Online || got.Current.StatusCode != 200 || got.Cycles != 4 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	srv := NewServer(zap.NewNop(), memory.New(), Options{AllowedOrigins: []string{"https://dash.example.com"}})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for origin, want := range map[string]string{
		"https://dash.example.com": "https://dash.example.com",
		"https://evil.example.com": "",
	} {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != want {
			t.Fatalf("origin %s: allow-origin %q want %q", origin, got, want)
		}
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	srv := NewServer(zap.NewNop(), memory.New(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
