// Package cmstest runs an in-memory CMS API for tests.
package cmstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eringen/pubfront/cms"
)

// MasterRef is the ref the fake API advertises.
const MasterRef = "master-ref"

// Server is a fake CMS API serving a fixed set of documents.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	docs     []cms.Document
	failures map[string]int // path suffix -> remaining forced failures
	Requests atomic.Int64
}

// NewServer starts a fake API. Close is registered with t.Cleanup.
func NewServer(t *testing.T, docs ...cms.Document) *Server {
	t.Helper()
	s := &Server{docs: docs, failures: make(map[string]int)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", s.handleAPI)
	mux.HandleFunc("/api/v2/documents/search", s.handleSearch)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Endpoint returns the API root URL.
func (s *Server) Endpoint() string {
	return s.URL + "/api/v2"
}

// FailNext makes the next n search requests answer 500.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	s.failures["search"] = n
	s.mu.Unlock()
}

// Post builds a posts document with the given uid and paragraph bodies.
func Post(uid, title string, published time.Time, sections ...Section) cms.Document {
	content := make([]map[string]any, 0, len(sections))
	for _, sec := range sections {
		body := make([]map[string]any, 0, len(sec.Body))
		for _, p := range sec.Body {
			body = append(body, map[string]any{"type": "paragraph", "text": p, "spans": []any{}})
		}
		content = append(content, map[string]any{"heading": sec.Heading, "body": body})
	}
	data, _ := json.Marshal(map[string]any{
		"title":    title,
		"subtitle": "About " + title,
		"author":   "Joana Silva",
		"banner":   map[string]any{"url": "https://images.example.com/" + uid + ".png"},
		"content":  content,
	})
	p := published
	return cms.Document{
		ID:                   "id-" + uid,
		UID:                  uid,
		Type:                 "posts",
		FirstPublicationDate: &p,
		Data:                 data,
	}
}

// Section is a post section for Post.
type Section struct {
	Heading string
	Body    []string
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"refs": []map[string]any{
			{"id": "master", "ref": MasterRef, "label": "Master", "isMasterRef": true},
		},
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.Requests.Add(1)
	s.mu.Lock()
	if s.failures["search"] > 0 {
		s.failures["search"]--
		s.mu.Unlock()
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	docs := append([]cms.Document(nil), s.docs...)
	s.mu.Unlock()

	q := r.URL.Query()
	if q.Get("ref") != MasterRef {
		http.Error(w, "bad ref", http.StatusBadRequest)
		return
	}
	predicate := q.Get("q")
	var matched []cms.Document
	switch {
	case strings.Contains(predicate, ".uid,"):
		uid := quotedArg(predicate)
		for _, d := range docs {
			if d.UID == uid {
				matched = append(matched, d)
			}
		}
	case strings.HasPrefix(predicate, "[[at(document.type,"):
		typ := quotedArg(predicate)
		for _, d := range docs {
			if d.Type == typ {
				matched = append(matched, d)
			}
		}
	default:
		http.Error(w, "bad predicate", http.StatusBadRequest)
		return
	}

	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize <= 0 {
		pageSize = 20
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}
	total := len(matched)
	totalPages := (total + pageSize - 1) / pageSize
	lo := min((page-1)*pageSize, total)
	hi := min(lo+pageSize, total)

	resp := cms.Response{
		Page:             page,
		ResultsPerPage:   pageSize,
		ResultsSize:      hi - lo,
		TotalResultsSize: total,
		TotalPages:       totalPages,
		Results:          matched[lo:hi],
	}
	if page < totalPages {
		next := *r.URL
		nq := next.Query()
		nq.Set("page", strconv.Itoa(page+1))
		next.RawQuery = nq.Encode()
		resp.NextPage = fmt.Sprintf("%s%s", s.URL, next.RequestURI())
	}
	writeJSON(w, resp)
}

func quotedArg(predicate string) string {
	i := strings.Index(predicate, ",")
	j := strings.LastIndex(predicate, ")]]")
	if i < 0 || j < i {
		return ""
	}
	v, err := strconv.Unquote(predicate[i+1 : j])
	if err != nil {
		return ""
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
