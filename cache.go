package pubfront

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/eringen/pubfront/blog"
	"github.com/eringen/pubfront/cms"
	"github.com/eringen/pubfront/listing"
)

// ErrNotFound is returned when a requested post does not exist.
var ErrNotFound = cms.ErrNotFound

const (
	firstPageKey = "first"
	allPostsKey  = "all"
)

// PostCache caches CMS reads: rendered post details in an expirable LRU and
// the listing pages with the same TTL. Concurrent misses for the same key
// share a single CMS call.
//
// Which pages count as generated is tracked apart from the LRU, so a post
// stays generated after its cached detail expires or is evicted.
type PostCache struct {
	cms      *cms.Client
	pageSize int
	posts    *expirable.LRU[string, blog.PostDetail]
	listings *expirable.LRU[string, listing.Page]
	group    singleflight.Group

	mu        sync.RWMutex
	generated map[string]struct{}
}

// NewPostCache creates a PostCache backed by the given client.
func NewPostCache(c *cms.Client, pageSize, size int, ttl time.Duration) *PostCache {
	return &PostCache{
		cms:       c,
		pageSize:  pageSize,
		posts:     expirable.NewLRU[string, blog.PostDetail](size, nil, ttl),
		listings:  expirable.NewLRU[string, listing.Page](2, nil, ttl),
		generated: make(map[string]struct{}),
	}
}

// Invalidate clears the cache so the next read triggers a fresh load. Pages
// already generated stay generated.
func (c *PostCache) Invalidate() {
	c.posts.Purge()
	c.listings.Purge()
}

// FirstPage returns the first listing page, newest posts first.
func (c *PostCache) FirstPage(ctx context.Context) (listing.Page, error) {
	if p, ok := c.listings.Get(firstPageKey); ok {
		return p, nil
	}
	v, err, _ := c.group.Do("listing:"+firstPageKey, func() (any, error) {
		resp, err := c.cms.ListByType(context.WithoutCancel(ctx), blog.DocumentType, cms.ListOptions{
			PageSize:  c.pageSize,
			Orderings: "[document.first_publication_date desc]",
		})
		if err != nil {
			return listing.Page{}, err
		}
		p := listing.PageFromResponse(resp)
		c.listings.Add(firstPageKey, p)
		return p, nil
	})
	if err != nil {
		return listing.Page{}, err
	}
	return v.(listing.Page), nil
}

// AllPosts returns every published post, newest first. Loading it also
// fills the detail cache and replaces the generated set with the listed
// posts, so posts removed from the CMS stop counting as generated.
func (c *PostCache) AllPosts(ctx context.Context) ([]blog.PostSummary, error) {
	if p, ok := c.listings.Get(allPostsKey); ok {
		return p.Items, nil
	}
	v, err, _ := c.group.Do("listing:"+allPostsKey, func() (any, error) {
		docs, err := c.cms.AllByType(context.WithoutCancel(ctx), blog.DocumentType, cms.ListOptions{
			Orderings: "[document.first_publication_date desc]",
		})
		if err != nil {
			return nil, err
		}
		items := make([]blog.PostSummary, 0, len(docs))
		generated := make(map[string]struct{}, len(docs))
		for _, doc := range docs {
			detail := blog.DetailFromDocument(doc)
			c.posts.Add(detail.UID, detail)
			items = append(items, detail.Summary())
			generated[detail.UID] = struct{}{}
		}
		c.listings.Add(allPostsKey, listing.Page{Items: items})
		c.mu.Lock()
		c.generated = generated
		c.mu.Unlock()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]blog.PostSummary), nil
}

// Generated reports whether the post page for uid has been generated and so
// renders in full rather than behind the loading placeholder.
func (c *PostCache) Generated(uid string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.generated[uid]
	return ok
}

func (c *PostCache) markGenerated(uid string) {
	c.mu.Lock()
	c.generated[uid] = struct{}{}
	c.mu.Unlock()
}

// GetPost returns a post by uid, fetching it on a miss.
func (c *PostCache) GetPost(ctx context.Context, uid string) (blog.PostDetail, error) {
	if p, ok := c.posts.Get(uid); ok {
		return p, nil
	}
	v, err, _ := c.group.Do("post:"+uid, func() (any, error) {
		doc, err := c.cms.GetByUID(context.WithoutCancel(ctx), blog.DocumentType, uid)
		if err != nil {
			return blog.PostDetail{}, err
		}
		p := blog.DetailFromDocument(*doc)
		c.posts.Add(uid, p)
		c.markGenerated(uid)
		return p, nil
	})
	if err != nil {
		if errors.Is(err, cms.ErrNotFound) {
			return blog.PostDetail{}, ErrNotFound
		}
		return blog.PostDetail{}, err
	}
	return v.(blog.PostDetail), nil
}
