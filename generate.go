package pubfront

import (
	"context"
	"time"
)

// GeneratePaths loads every post into the cache so their pages render without
// a CMS round trip, and returns the generated post paths.
func (a *App) GeneratePaths(ctx context.Context) ([]string, error) {
	a.Cache.listings.Remove(allPostsKey)
	a.Cache.listings.Remove(firstPageKey)
	posts, err := a.Cache.AllPosts(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(posts))
	for _, p := range posts {
		paths = append(paths, p.Link())
	}
	a.Log.Info("generated post paths", "count", len(paths))
	return paths, nil
}

// revalidate regenerates post pages every interval until ctx is done.
func (a *App) revalidate(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.GeneratePaths(ctx); err != nil {
				a.Log.Warn("revalidate failed", "err", err)
			}
		}
	}
}
