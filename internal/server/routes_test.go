package server

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/lazypower/newsletter/internal/domain"
)

func TestTrackRedirectsAndRecords(t *testing.T) {
	srv, e := testServer(t)
	ctx := context.Background()
	target := "https://ex.com/go?ref=mail"

	if _, err := e.TrackArticle(ctx, &domain.Article{Title: "golang", URL: target}); err != nil {
		t.Fatalf("TrackArticle: %v", err)
	}

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/track?url="+url.QueryEscape(target), nil))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if loc := w.Header().Get("Location"); loc != target {
		t.Errorf("Location = %q, want %q", loc, target)
	}
	n, err := e.Repo.ClickCount(ctx, target)
	if err != nil {
		t.Fatalf("ClickCount: %v", err)
	}
	if n != 1 {
		t.Errorf("ClickCount = %d, want 1", n)
	}
	wt, err := e.Weight(ctx, "golang")
	if err != nil {
		t.Fatalf("Weight: %v", err)
	}
	if wt != 1 {
		t.Errorf("weight = %v, want 1", wt)
	}
}

func TestTrackUnknownStillRedirects(t *testing.T) {
	srv, _ := testServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/track?url="+url.QueryEscape("https://ex.com/never"), nil))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
}

func TestTrackRejectsBadURL(t *testing.T) {
	srv, _ := testServer(t)

	for _, q := range []string{"", "?url=", "?url=javascript%3Aalert(1)", "?url=%2Fpath", "?url=ftp%3A%2F%2Fex.com"} {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest("GET", "/track"+q, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", q, w.Code)
		}
	}
}

func TestTrackArticleEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	body := `{"title":"golang release","url":"https://ex.com/a","source":{"name":"Go Blog"}}`

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("POST", "/api/articles", strings.NewReader(body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["tracked"] != true {
		t.Errorf("tracked = %v, want true", resp["tracked"])
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("POST", "/api/articles", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate status = %d, want 200", w.Code)
	}
	if decode(t, w)["tracked"] != false {
		t.Error("duplicate reported as tracked")
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("POST", "/api/articles", strings.NewReader(`{"title":"x"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing url status = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("POST", "/api/articles", strings.NewReader(`{`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid json status = %d, want 400", w.Code)
	}
}

func TestKeywordsEndpoint(t *testing.T) {
	srv, e := testServer(t)
	ctx := context.Background()
	if _, err := e.TrackArticle(ctx, &domain.Article{Title: "golang golang rust", URL: "https://ex.com/a"}); err != nil {
		t.Fatalf("TrackArticle: %v", err)
	}
	if err := e.RecordClick(ctx, "https://ex.com/a"); err != nil {
		t.Fatalf("RecordClick: %v", err)
	}

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/keywords?limit=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	kws := decode(t, w)["keywords"].([]any)
	if len(kws) != 1 {
		t.Fatalf("len(keywords) = %d, want 1", len(kws))
	}
	top := kws[0].(map[string]any)
	if top["keyword"] != "golang" {
		t.Errorf("keyword = %v, want golang", top["keyword"])
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/keywords?limit=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}

func TestExtractEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("POST", "/api/keywords/extract", strings.NewReader(`{"text":"golang the rust"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	kw := decode(t, w)["keywords"].(map[string]any)
	if len(kw) != 2 || kw["golang"] != 0.5 || kw["rust"] != 0.5 {
		t.Errorf("keywords = %v", kw)
	}
}

func TestScoreEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("POST", "/api/score", strings.NewReader(`{"title":"golang","description":"rust"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	score := decode(t, w)["score"].(float64)
	if math.Abs(score-0.5) > 1e-12 {
		t.Errorf("score = %v, want 0.5", score)
	}
}
