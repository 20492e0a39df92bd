package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/askservice"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/testutil"
)

func testService(t *testing.T) *askservice.Service {
	t.Helper()
	db := testutil.TestDB(t)
	err := db.Upsert(index.Record{
		Path:        "daily/2025-01-10.md",
		Title:       "Standup",
		Preview:     "Discussed the stripe migration.",
		Fingerprint: "fp1",
		Tags:        []string{"stripe"},
		Dates:       []string{"2025-01-10"},
		IndexedAt:   time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return askservice.New(db, nil, 100, logger)
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(testService(t), false, "", nil))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearch_MissingQuery(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/search")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSearch_ReturnsHits(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/search?q=stripe+migration")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Question string `json:"question"`
		Total    int    `json:"total"`
		Hits     []struct {
			Path string `json:"path"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || len(body.Hits) != 1 || body.Hits[0].Path != "daily/2025-01-10.md" {
		t.Errorf("body = %+v", body)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Post(srv.URL+"/ask", "application/json", strings.NewReader(`{"question": "  "}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAsk_DegradedAnswerWithoutModel(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Post(srv.URL+"/ask", "application/json", strings.NewReader(`{"question": "stripe migration notes"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Answer string `json:"answer"`
		Hits   []struct {
			Path string `json:"path"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Answer == "" {
		t.Error("expected a degraded answer even without a model")
	}
	if len(body.Hits) != 1 {
		t.Errorf("hits = %+v, want 1", body.Hits)
	}
}

func TestGetDocument_Found(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/documents/daily/2025-01-10.md")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Path  string   `json:"path"`
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Path != "daily/2025-01-10.md" || body.Title != "Standup" {
		t.Errorf("body = %+v", body)
	}
	if len(body.Tags) != 1 || body.Tags[0] != "stripe" {
		t.Errorf("tags = %v", body.Tags)
	}
}

func TestGetDocument_EncodedSlash(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/documents/daily%2F2025-01-10.md")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 for encoded slash", resp.StatusCode)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/documents/nope.md")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStats(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["documents"] != 1 || body["tags"] != 1 {
		t.Errorf("stats = %v", body)
	}
}

func TestAuth_TokenRequired(t *testing.T) {
	srv := httptest.NewServer(NewRouter(testService(t), true, "secret", nil))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without token", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 with wrong token", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/stats", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 with valid token", resp.StatusCode)
	}
}
