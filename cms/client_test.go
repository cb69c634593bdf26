package cms_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eringen/pubfront/cms"
	"github.com/eringen/pubfront/internal/cmstest"
)

func newClient(t *testing.T, endpoint string) *cms.Client {
	t.Helper()
	c, err := cms.New(cms.Config{Endpoint: endpoint})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func fixture(n int) []cms.Document {
	base := time.Date(2021, 3, 25, 19, 25, 28, 0, time.UTC)
	docs := make([]cms.Document, 0, n)
	for i := 0; i < n; i++ {
		uid := string(rune('a' + i))
		docs = append(docs, cmstest.Post(uid, "Post "+uid, base.Add(time.Duration(i)*time.Hour)))
	}
	return docs
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	for _, ep := range []string{"", "ftp://example.com/api/v2", "::"} {
		if _, err := cms.New(cms.Config{Endpoint: ep}); err == nil {
			t.Errorf("New(%q) should fail", ep)
		}
	}
}

func TestRef(t *testing.T) {
	srv := cmstest.NewServer(t)
	ref, err := newClient(t, srv.Endpoint()).Ref(context.Background())
	if err != nil {
		t.Fatalf("Ref: %v", err)
	}
	if ref != cmstest.MasterRef {
		t.Errorf("Ref = %q, want %q", ref, cmstest.MasterRef)
	}
}

func TestListByTypePaginates(t *testing.T) {
	srv := cmstest.NewServer(t, fixture(7)...)
	c := newClient(t, srv.Endpoint())

	resp, err := c.ListByType(context.Background(), "posts", cms.ListOptions{PageSize: 5})
	if err != nil {
		t.Fatalf("ListByType: %v", err)
	}
	if len(resp.Results) != 5 {
		t.Fatalf("first page has %d results, want 5", len(resp.Results))
	}
	if resp.NextPage == "" {
		t.Fatal("expected next_page on first page")
	}

	next, err := c.FetchPage(context.Background(), resp.NextPage)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(next.Results) != 2 {
		t.Errorf("second page has %d results, want 2", len(next.Results))
	}
	if next.NextPage != "" {
		t.Errorf("last page next_page = %q, want empty", next.NextPage)
	}
	if next.Results[0].UID != "f" {
		t.Errorf("second page starts with %q, want f", next.Results[0].UID)
	}
}

func TestAllByType(t *testing.T) {
	srv := cmstest.NewServer(t, fixture(7)...)
	docs, err := newClient(t, srv.Endpoint()).AllByType(context.Background(), "posts", cms.ListOptions{PageSize: 3})
	if err != nil {
		t.Fatalf("AllByType: %v", err)
	}
	if len(docs) != 7 {
		t.Errorf("AllByType returned %d docs, want 7", len(docs))
	}
}

func TestGetByUID(t *testing.T) {
	srv := cmstest.NewServer(t, fixture(3)...)
	c := newClient(t, srv.Endpoint())

	doc, err := c.GetByUID(context.Background(), "posts", "b")
	if err != nil {
		t.Fatalf("GetByUID: %v", err)
	}
	if doc.UID != "b" || doc.FirstPublicationDate == nil {
		t.Errorf("GetByUID returned %+v", doc)
	}

	_, err = c.GetByUID(context.Background(), "posts", "missing")
	if !errors.Is(err, cms.ErrNotFound) {
		t.Errorf("GetByUID(missing) err = %v, want ErrNotFound", err)
	}
}

func TestFetchPageRejectsForeignURL(t *testing.T) {
	srv := cmstest.NewServer(t)
	c := newClient(t, srv.Endpoint())
	for _, u := range []string{
		"http://169.254.169.254/latest/meta-data",
		srv.URL + "/other/path",
		"not a url\x7f",
	} {
		if _, err := c.FetchPage(context.Background(), u); err == nil {
			t.Errorf("FetchPage(%q) should fail", u)
		}
	}
	if _, err := c.FetchPage(context.Background(), "http://169.254.169.254/api/v2/documents/search"); !errors.Is(err, cms.ErrForeignPage) {
		t.Errorf("foreign host err = %v, want ErrForeignPage", err)
	}
}

func TestAPIError(t *testing.T) {
	srv := cmstest.NewServer(t, fixture(1)...)
	srv.FailNext(1)
	_, err := newClient(t, srv.Endpoint()).ListByType(context.Background(), "posts", cms.ListOptions{})
	var apiErr *cms.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", apiErr.StatusCode)
	}
}

func TestDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()
	if _, err := newClient(t, srv.URL+"/api/v2").Ref(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestAccessTokenSent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("access_token")
		w.Write([]byte(`{"refs":[{"ref":"r","isMasterRef":true}]}`))
	}))
	defer srv.Close()
	c, err := cms.New(cms.Config{Endpoint: srv.URL + "/api/v2", AccessToken: "secret"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Ref(context.Background()); err != nil {
		t.Fatalf("Ref: %v", err)
	}
	if got != "secret" {
		t.Errorf("access_token = %q, want secret", got)
	}
}

func TestFetchPageDecodesCMSTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"page": 2,
			"results_per_page": 1,
			"next_page": null,
			"results": [{
				"id": "YFzR", "uid": "como-utilizar-hooks", "type": "posts",
				"first_publication_date": "2021-03-15T19:25:28+0000",
				"last_publication_date": "2021-03-25T22:10:03-0300",
				"data": {"title": "Como utilizar Hooks"}
			}, {
				"id": "YFzS", "uid": "rascunho", "type": "posts",
				"first_publication_date": null,
				"data": {}
			}]
		}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/api/v2")
	resp, err := c.FetchPage(context.Background(), srv.URL+"/api/v2/documents/search?page=2")
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	first := resp.Results[0]
	want := time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC)
	if first.FirstPublicationDate == nil || !first.FirstPublicationDate.Equal(want) {
		t.Errorf("FirstPublicationDate = %v, want %v", first.FirstPublicationDate, want)
	}
	wantLast := time.Date(2021, 3, 26, 1, 10, 3, 0, time.UTC)
	if first.LastPublicationDate == nil || !first.LastPublicationDate.Equal(wantLast) {
		t.Errorf("LastPublicationDate = %v, want %v", first.LastPublicationDate, wantLast)
	}
	if string(first.Data) != `{"title": "Como utilizar Hooks"}` {
		t.Errorf("Data = %s", first.Data)
	}
	if d := resp.Results[1]; d.FirstPublicationDate != nil || d.LastPublicationDate != nil {
		t.Errorf("null dates should decode as nil, got %v %v", d.FirstPublicationDate, d.LastPublicationDate)
	}
}

func TestDocumentTimestamps(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantNil bool
		wantErr bool
	}{
		{in: `"2021-03-15T19:25:28+0000"`, want: time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC)},
		{in: `"2021-03-15T19:25:28Z"`, want: time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC)},
		{in: `"2021-03-15T16:25:28-03:00"`, want: time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC)},
		{in: `null`, wantNil: true},
		{in: `""`, wantNil: true},
		{in: `"15/03/2021"`, wantErr: true},
	}
	for _, tt := range tests {
		var d cms.Document
		err := json.Unmarshal([]byte(`{"uid":"x","first_publication_date":`+tt.in+`}`), &d)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.in, err)
			continue
		}
		if d.UID != "x" {
			t.Errorf("%s: UID = %q", tt.in, d.UID)
		}
		if tt.wantNil {
			if d.FirstPublicationDate != nil {
				t.Errorf("%s: got %v, want nil", tt.in, d.FirstPublicationDate)
			}
			continue
		}
		if d.FirstPublicationDate == nil || !d.FirstPublicationDate.Equal(tt.want) {
			t.Errorf("%s: got %v, want %v", tt.in, d.FirstPublicationDate, tt.want)
		}
	}
}

func TestDocumentEncodesCMSTimestamps(t *testing.T) {
	published := time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC)
	b, err := json.Marshal(cms.Document{UID: "x", FirstPublicationDate: &published})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(b), `"first_publication_date":"2021-03-15T19:25:28+0000"`) {
		t.Errorf("unexpected encoding: %s", b)
	}
	if !strings.Contains(string(b), `"last_publication_date":null`) {
		t.Errorf("missing date should encode as null: %s", b)
	}
}
