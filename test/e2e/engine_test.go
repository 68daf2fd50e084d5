// Package e2e exercises a running retrieval engine over HTTP. Every test
// skips when the engine is not reachable.
//
// Prerequisites:
//   - an index built with cmd/indexer
//   - cmd/searcher serving it
//
// Run with:
//
//	E2E_SEARCHER_URL=http://localhost:8080 go test -v -timeout=120s ./test/e2e/...
package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"
)

var client = &http.Client{Timeout: 10 * time.Second}

func baseURL() string {
	if v := os.Getenv("E2E_SEARCHER_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := client.Get(baseURL() + path)
	if err != nil {
		t.Skipf("engine unavailable: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		t.Run(path, func(t *testing.T) {
			resp := get(t, path)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("expected 200, got %d: %s", resp.StatusCode, body)
			}
		})
	}
}

func TestSearchRoutesReturnPairs(t *testing.T) {
	q := url.QueryEscape("information retrieval")
	for _, path := range []string{
		"/api/v1/search?q=" + q,
		"/api/v1/search/body?q=" + q + "&limit=10",
		"/api/v1/search/title?q=" + q + "&limit=10",
		"/api/v1/search/anchor?q=" + q + "&limit=10",
	} {
		t.Run(path, func(t *testing.T) {
			resp := get(t, path)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			var pairs [][2]string
			if err := json.NewDecoder(resp.Body).Decode(&pairs); err != nil {
				t.Fatalf("body is not a list of [id, title] pairs: %v", err)
			}
			if len(pairs) > 100 {
				t.Errorf("%d results exceeds the result cap", len(pairs))
			}
			for _, p := range pairs {
				if p[0] == "" {
					t.Errorf("empty id in %v", p)
				}
			}
		})
	}
}

func TestSearchRejectsMissingQuery(t *testing.T) {
	resp := get(t, "/api/v1/search")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRepeatedQueryIsStable(t *testing.T) {
	path := "/api/v1/search?q=" + url.QueryEscape("history of science")
	var first []byte
	for i := 0; i < 3; i++ {
		resp := get(t, path)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if i == 0 {
			first = body
			continue
		}
		if !bytes.Equal(first, body) {
			t.Fatalf("attempt %d differs from the first response", i+1)
		}
	}
}

func TestPageRankLengthMatchesInput(t *testing.T) {
	resp, err := client.Post(baseURL()+"/api/v1/pagerank", "application/json", bytes.NewBufferString("[1, 2, 4294967295]"))
	if err != nil {
		t.Skipf("engine unavailable: %v", err)
	}
	defer resp.Body.Close()
	var scores []float64
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		t.Fatal(err)
	}
	if len(scores) != 3 || scores[2] != 0 {
		t.Fatalf("scores = %v", scores)
	}
}
