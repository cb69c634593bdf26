package pubfront

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/eringen/pubfront/cms"
	"github.com/eringen/pubfront/internal/cmstest"
	"github.com/eringen/pubfront/listing"
)

func posts(n int) []cms.Document {
	base := time.Date(2021, 3, 25, 19, 25, 28, 0, time.UTC)
	docs := make([]cms.Document, 0, n)
	for i := 0; i < n; i++ {
		uid := "post-" + string(rune('a'+i))
		docs = append(docs, cmstest.Post(uid, "Title "+uid, base.AddDate(0, 0, -i),
			cmstest.Section{Heading: "Intro", Body: []string{"one two three"}},
		))
	}
	return docs
}

func newTestApp(t *testing.T, cfg SiteConfig, docs ...cms.Document) (*App, *cmstest.Server) {
	t.Helper()
	srv := cmstest.NewServer(t, docs...)
	cfg.CMSEndpoint = srv.Endpoint()
	cfg.URL = "https://blog.example.com"
	a := New(cfg, WithLogger(NewLogger("test", io.Discard)))
	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, srv
}

func get(t *testing.T, a *App, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

// firstCursor returns the next_page of the first listing page.
func firstCursor(t *testing.T, a *App) string {
	t.Helper()
	page, err := a.Cache.FirstPage(context.Background())
	if err != nil {
		t.Fatalf("FirstPage: %v", err)
	}
	if page.NextPage == "" {
		t.Fatal("expected a second page")
	}
	return page.NextPage
}

func TestHomeListsFirstPage(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{}, posts(7)...)
	rec := get(t, a, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, uid := range []string{"post-a", "post-e"} {
		if !strings.Contains(body, `href="/posts/`+uid+`/"`) {
			t.Errorf("home missing %s", uid)
		}
	}
	if strings.Contains(body, "post-f") {
		t.Error("home should only show the first page")
	}
	if !strings.Contains(body, "Carregar mais posts") {
		t.Error("load-more control missing")
	}
	if !strings.Contains(body, "25 de mar 2021") {
		t.Error("listing date missing")
	}
}

func TestHomeHidesLoadMoreOnSinglePage(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{}, posts(3)...)
	body := get(t, a, "/").Body.String()
	if strings.Contains(body, "Carregar mais posts") {
		t.Error("load-more control shown without a next page")
	}
}

func TestLoadMoreFragment(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{}, posts(7)...)
	cursor := firstCursor(t, a)

	rec := get(t, a, "/posts/more/?cursor="+url.QueryEscape(cursor))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "post-f") || !strings.Contains(body, "post-g") {
		t.Errorf("fragment missing second page: %s", body)
	}
	if strings.Contains(body, "post-a") {
		t.Error("fragment repeats first page")
	}
	if strings.Contains(body, "load-more") {
		t.Error("control shown after last page")
	}
	if strings.Contains(body, "<html") {
		t.Error("fragment rendered with layout")
	}
}

func TestLoadMoreFailureReturnsSameControl(t *testing.T) {
	a, srv := newTestApp(t, SiteConfig{}, posts(7)...)
	cursor := firstCursor(t, a)
	srv.FailNext(1)

	rec := get(t, a, "/posts/more/?cursor="+url.QueryEscape(cursor))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "data-cursor=") || !strings.Contains(body, "page=2") {
		t.Errorf("expected the original control back: %s", body)
	}
	if strings.Contains(body, "post-f") {
		t.Error("failed load should not add cards")
	}
}

func TestLoadMoreRejectsForeignCursor(t *testing.T) {
	a, srv := newTestApp(t, SiteConfig{}, posts(7)...)
	before := srv.Requests.Load()
	rec := get(t, a, "/posts/more/?cursor="+url.QueryEscape("http://169.254.169.254/latest/"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if srv.Requests.Load() != before {
		t.Error("foreign cursor reached the CMS")
	}
}

func TestLoadMoreTrailingSlashRedirect(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{}, posts(1)...)
	rec := get(t, a, "/posts/more?cursor=x")
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/posts/more/?cursor=x") {
		t.Errorf("Location = %q", loc)
	}
}

func TestAPIPosts(t *testing.T) {
	a, srv := newTestApp(t, SiteConfig{}, posts(7)...)

	var first listing.State
	rec := get(t, a, "/api/posts/")
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(first.Items) != 5 || first.NextPage == "" {
		t.Fatalf("first page = %d items, next %q", len(first.Items), first.NextPage)
	}

	var next listing.State
	rec = get(t, a, "/api/posts/?cursor="+url.QueryEscape(first.NextPage))
	if err := json.Unmarshal(rec.Body.Bytes(), &next); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(next.Items) != 2 || next.NextPage != "" {
		t.Errorf("second page = %d items, next %q", len(next.Items), next.NextPage)
	}

	srv.FailNext(1)
	rec = get(t, a, "/api/posts/?cursor="+url.QueryEscape(first.NextPage))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status on failure = %d, want 502", rec.Code)
	}
}

func TestPostFallbackLoading(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{Fallback: true}, posts(2)...)

	rec := get(t, a, "/posts/post-b/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Carregando...") {
		t.Errorf("expected loading placeholder: %s", rec.Body.String())
	}

	rec = get(t, a, "/posts/post-b/?partial=post")
	if rec.Code != http.StatusOK {
		t.Fatalf("partial status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>Title post-b</h1>") || strings.Contains(body, "<html") {
		t.Errorf("unexpected partial: %s", body)
	}

	// Resolved once, the page is generated and renders in full.
	rec = get(t, a, "/posts/post-b/")
	if !strings.Contains(rec.Body.String(), "<h1>Title post-b</h1>") {
		t.Errorf("expected full post after resolution: %s", rec.Body.String())
	}
}

func TestPostFallbackNotFound(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{Fallback: true}, posts(1)...)
	rec := get(t, a, "/posts/missing/?partial=post")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Post não encontrado") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestPostRendersWithReadingTime(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{}, posts(1)...)
	rec := get(t, a, "/posts/post-a/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<h1>Title post-a</h1>",
		"25 mar 2021",
		"Joana Silva",
		`class="reading-time">1 min`,
		"<h2>Intro</h2>",
		"<p>one two three</p>",
		`src="https://images.example.com/post-a.png"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("post page missing %q", want)
		}
	}
}

func TestPostNotFound(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{}, posts(1)...)
	rec := get(t, a, "/posts/missing/")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPostCMSErrorRendersServerError(t *testing.T) {
	a, srv := newTestApp(t, SiteConfig{}, posts(1)...)
	srv.FailNext(1)
	rec := get(t, a, "/posts/post-a/")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Algo deu errado") {
		t.Errorf("expected error page: %s", rec.Body.String())
	}
}

func TestPostRouteVariantRedirects(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{}, posts(1)...)
	rec := get(t, a, "/post/post-a/")
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/posts/post-a/" {
		t.Errorf("Location = %q", loc)
	}
}

func TestGeneratePaths(t *testing.T) {
	a, srv := newTestApp(t, SiteConfig{Fallback: true}, posts(7)...)
	paths, err := a.GeneratePaths(context.Background())
	if err != nil {
		t.Fatalf("GeneratePaths: %v", err)
	}
	if len(paths) != 7 || paths[0] != "/posts/post-a/" {
		t.Errorf("paths = %v", paths)
	}
	if !a.Cache.Generated("post-g") {
		t.Error("post-g should be generated")
	}

	before := srv.Requests.Load()
	rec := get(t, a, "/posts/post-g/")
	if !strings.Contains(rec.Body.String(), "<h1>Title post-g</h1>") {
		t.Errorf("generated post should render in full: %s", rec.Body.String())
	}
	if srv.Requests.Load() != before {
		t.Error("generated post should not hit the CMS")
	}
}

func TestSitemapAndFeed(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{Name: "spacetraveling"}, posts(2)...)

	rec := get(t, a, "/sitemap.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("sitemap status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<loc>https://blog.example.com/posts/post-b/</loc>") {
		t.Errorf("sitemap missing post: %s", body)
	}
	if !strings.Contains(body, "<lastmod>2021-03-24</lastmod>") {
		t.Errorf("sitemap missing lastmod: %s", body)
	}

	rec = get(t, a, "/feed.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("feed status = %d", rec.Code)
	}
	body = rec.Body.String()
	if !strings.Contains(body, "<title>spacetraveling</title>") || !strings.Contains(body, "<title>Title post-a</title>") {
		t.Errorf("feed missing titles: %s", body)
	}
}

func TestRobotsAndMetrics(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{}, posts(1)...)
	if body := get(t, a, "/robots.txt").Body.String(); !strings.Contains(body, "Sitemap: https://blog.example.com/sitemap.xml") {
		t.Errorf("robots.txt = %q", body)
	}

	get(t, a, "/")
	body := get(t, a, "/metrics").Body.String()
	if !strings.Contains(body, "pubfront_cms_requests_total") {
		t.Error("metrics missing cms counter")
	}
}

func TestEmbeddedAssets(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{})
	rec := get(t, a, "/public/loadmore.js")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "load-more") {
		t.Error("unexpected script body")
	}
}

func TestInitRequiresEndpoint(t *testing.T) {
	a := New(SiteConfig{}, WithLogger(NewLogger("test", io.Discard)))
	if err := a.Init(); err == nil {
		t.Fatal("expected error without CMS endpoint")
	}
}

func TestGeneratedPostSurvivesCacheExpiry(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{
		Fallback:      true,
		PostCacheTTL:  time.Millisecond,
		PostCacheSize: 2,
	}, posts(5)...)
	if _, err := a.GeneratePaths(context.Background()); err != nil {
		t.Fatalf("GeneratePaths: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	for _, uid := range []string{"post-a", "post-e"} {
		if !a.Cache.Generated(uid) {
			t.Errorf("%s should stay generated after expiry", uid)
		}
		rec := get(t, a, "/posts/"+uid+"/")
		body := rec.Body.String()
		if strings.Contains(body, "Carregando...") {
			t.Errorf("%s: generated post served the loading page", uid)
		}
		if !strings.Contains(body, "<h1>Title "+uid+"</h1>") {
			t.Errorf("%s: expected full post: %s", uid, body)
		}
	}
}

func TestGeneratedSetFollowsCMS(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{Fallback: true}, posts(2)...)
	if a.Cache.Generated("post-a") {
		t.Fatal("nothing is generated before GeneratePaths")
	}
	if _, err := a.Cache.GetPost(context.Background(), "post-b"); err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if !a.Cache.Generated("post-b") {
		t.Error("a resolved post should count as generated")
	}
	if _, err := a.Cache.GetPost(context.Background(), "missing"); err == nil {
		t.Fatal("expected not found")
	}
	if a.Cache.Generated("missing") {
		t.Error("a missing post should not count as generated")
	}
}

func TestTransientPagesAreNotCached(t *testing.T) {
	a, srv := newTestApp(t, SiteConfig{Fallback: true}, posts(1)...)
	tests := []struct {
		name   string
		target string
		setup  func()
		want   string
	}{
		{name: "loading placeholder", target: "/posts/post-a/", want: "no-store"},
		{name: "not found", target: "/posts/missing/?partial=post", want: "no-store"},
		{name: "unknown route", target: "/nothing/here/", want: "no-store"},
		{name: "server error", target: "/", setup: func() { srv.FailNext(1) }, want: "no-store"},
		{name: "resolved post", target: "/posts/post-a/?partial=post", want: "public, max-age=300"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			rec := get(t, a, tt.target)
			if got := rec.Header().Get("Cache-Control"); got != tt.want {
				t.Errorf("Cache-Control = %q, want %q (status %d)", got, tt.want, rec.Code)
			}
		})
	}
}
