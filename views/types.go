package views

import (
	"github.com/eringen/pubfront/blog"
	"github.com/eringen/pubfront/listing"
)

// Site holds site-wide settings. Every page receives it so nothing is
// hardcoded in templates.
type Site struct {
	Name        string // SITE_NAME  (default "spacetraveling")
	URL         string // SITE_URL   (default "http://localhost:3000")
	Description string // SITE_DESCRIPTION
	Author      string // SITE_AUTHOR
	Lang        string // SITE_LANG  (default "pt-BR")
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
	JSONLD      string
}

// HomePage is the listing page.
type HomePage struct {
	Site  Site
	Meta  PageMeta
	State listing.State
}

// MorePosts is the fragment returned by a load-more request: the cards of
// the fetched page and the control for the page after it.
type MorePosts struct {
	Items    []blog.PostSummary
	NextPage string
}

// PostPage is a single post.
type PostPage struct {
	Site Site
	Meta PageMeta
	Post blog.PostDetail
	// ReadingTime is in minutes and only shown when HasReadingTime is set.
	ReadingTime    int
	HasReadingTime bool
}

// LoadingPage is served for posts whose page has not been generated yet.
type LoadingPage struct {
	Site Site
	Meta PageMeta
	UID  string
}

// StatusPage is a 404 or 500 page.
type StatusPage struct {
	Site Site
	Meta PageMeta
}
