// Package views holds the default page components. Each page writes escaped
// HTML into a buffer and is exposed as a templ component, so callers can
// swap in their own.
package views

import (
	"bytes"
	"context"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/pubfront/blog"
	"github.com/eringen/pubfront/richtext"
)

func component(render func(buf *bytes.Buffer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		render(&buf)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func page(site Site, meta PageMeta, content func(buf *bytes.Buffer)) templ.Component {
	return component(func(buf *bytes.Buffer) {
		buf.WriteString(`<!DOCTYPE html>` + "\n" + `<html lang="`)
		buf.WriteString(html.EscapeString(site.Lang))
		buf.WriteString("\">\n")
		writeHead(buf, site, meta)
		buf.WriteString("<body>\n")
		writeHeader(buf, site)
		buf.WriteString("<main>\n")
		content(buf)
		buf.WriteString("\n</main>\n")
		buf.WriteString(`<script src="/public/loadmore.js" defer></script>` + "\n")
		buf.WriteString("</body>\n</html>")
	})
}

func writeHead(buf *bytes.Buffer, site Site, meta PageMeta) {
	name := html.EscapeString(site.Name)
	title := name
	ogTitle := name
	if meta.Title != "" {
		title = html.EscapeString(meta.Title) + " | " + name
		ogTitle = html.EscapeString(meta.Title)
	}
	ogType := meta.OGType
	if ogType == "" {
		ogType = "website"
	}

	buf.WriteString("<head>\n")
	buf.WriteString(`<meta charset="utf-8">` + "\n")
	buf.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")
	buf.WriteString("<title>" + title + "</title>\n")
	if meta.Description != "" {
		buf.WriteString(`<meta name="description" content="` + html.EscapeString(meta.Description) + "\">\n")
	}
	if u := richtext.SafeURL(meta.URL); u != "" {
		buf.WriteString(`<link rel="canonical" href="` + u + "\">\n")
		buf.WriteString(`<meta property="og:url" content="` + u + "\">\n")
	}
	buf.WriteString(`<meta property="og:site_name" content="` + name + "\">\n")
	buf.WriteString(`<meta property="og:title" content="` + ogTitle + "\">\n")
	buf.WriteString(`<meta property="og:type" content="` + html.EscapeString(ogType) + "\">\n")
	if img := richtext.SafeURL(meta.Image); img != "" {
		buf.WriteString(`<meta property="og:image" content="` + img + "\">\n")
	}
	buf.WriteString(`<link rel="alternate" type="application/rss+xml" title="` + name + `" href="/feed.xml">` + "\n")
	buf.WriteString(`<link rel="stylesheet" href="/public/style.css">` + "\n")
	if meta.JSONLD != "" {
		buf.WriteString(`<script type="application/ld+json">`)
		buf.WriteString(scriptSafe(meta.JSONLD))
		buf.WriteString("</script>\n")
	}
	buf.WriteString("</head>\n")
}

// scriptSafe keeps a JSON document from closing its script element.
func scriptSafe(s string) string {
	return strings.ReplaceAll(s, "</", `<\/`)
}

func writeHeader(buf *bytes.Buffer, site Site) {
	name := html.EscapeString(site.Name)
	buf.WriteString(`<header class="container site-header">` + "\n")
	buf.WriteString(`<a href="/" class="logo" aria-label="` + name + `">` + name + `<span class="dot">.</span></a>` + "\n")
	buf.WriteString("</header>\n")
}

func writeCard(buf *bytes.Buffer, p blog.PostSummary) {
	buf.WriteString(`<a class="card" href="` + html.EscapeString(PostURL(p.UID)) + "\">\n")
	buf.WriteString("<h2>" + html.EscapeString(p.Title) + "</h2>\n")
	buf.WriteString("<p>" + html.EscapeString(p.Subtitle) + "</p>\n")
	buf.WriteString(`<div class="subcontent">` + "\n")
	buf.WriteString(`<time datetime="` + ISODate(p.PublicationDate) + `">`)
	buf.WriteString(html.EscapeString(blog.FormatDate(p.PublicationDate, blog.ListingDate)))
	buf.WriteString("</time>\n")
	buf.WriteString(`<span class="author">` + html.EscapeString(p.Author) + "</span>\n")
	buf.WriteString("</div>\n</a>\n")
}

// writeLoadMore writes the load-more control, or nothing on the last page.
func writeLoadMore(buf *bytes.Buffer, cursor string) {
	if cursor == "" {
		return
	}
	buf.WriteString(`<div id="load-more">` + "\n")
	buf.WriteString(`<button type="button" class="load-more" data-endpoint="/posts/more/" data-cursor="`)
	buf.WriteString(html.EscapeString(cursor))
	buf.WriteString(`">Carregar mais posts</button>` + "\n")
	buf.WriteString("</div>")
}

func writeMore(buf *bytes.Buffer, m MorePosts) {
	for _, p := range m.Items {
		writeCard(buf, p)
	}
	writeLoadMore(buf, m.NextPage)
}

func writeArticle(buf *bytes.Buffer, p PostPage) {
	buf.WriteString(`<div class="banner"><img src="` + richtext.SafeURL(p.Post.BannerURL) + `" alt=""></div>` + "\n")
	buf.WriteString(`<article class="container post">` + "\n")
	buf.WriteString("<h1>" + html.EscapeString(p.Post.Title) + "</h1>\n")
	buf.WriteString(`<div class="details">` + "\n")
	buf.WriteString(`<time datetime="` + ISODate(p.Post.PublicationDate) + `">`)
	buf.WriteString(html.EscapeString(blog.FormatDate(p.Post.PublicationDate, blog.PostDate)))
	buf.WriteString("</time>\n")
	buf.WriteString(`<span class="author">` + html.EscapeString(p.Post.Author) + "</span>\n")
	if p.HasReadingTime {
		buf.WriteString(`<span class="reading-time">` + ReadingTimeLabel(p.ReadingTime) + "</span>\n")
	}
	buf.WriteString("</div>\n")
	for _, sec := range p.Post.Content {
		buf.WriteString("<section>\n")
		buf.WriteString("<h2>" + html.EscapeString(sec.Heading) + "</h2>\n")
		buf.WriteString(`<div class="body">`)
		richtext.Render(buf, sec.Body)
		buf.WriteString("</div>\n</section>\n")
	}
	buf.WriteString("</article>")
}

func writeStatus(buf *bytes.Buffer, title, body string) {
	buf.WriteString(`<div class="container status">` + "\n")
	buf.WriteString("<h1>" + title + "</h1>\n")
	buf.WriteString("<p>" + body + "</p>\n")
	buf.WriteString("</div>")
}

const homeLink = `<a href="/">Voltar para a página inicial</a>`

// Home renders the post listing with the load-more control.
func Home(p HomePage) templ.Component {
	return page(p.Site, p.Meta, func(buf *bytes.Buffer) {
		buf.WriteString(`<div class="container posts" id="posts">` + "\n")
		writeMore(buf, MorePosts{Items: p.State.Items, NextPage: p.State.NextPage})
		buf.WriteString("\n</div>")
	})
}

// More renders the cards of a loaded page and the next load-more control.
func More(m MorePosts) templ.Component {
	return component(func(buf *bytes.Buffer) { writeMore(buf, m) })
}

// Post renders a full post page.
func Post(p PostPage) templ.Component {
	return page(p.Site, p.Meta, func(buf *bytes.Buffer) {
		buf.WriteString(`<div id="post">`)
		writeArticle(buf, p)
		buf.WriteString("</div>")
	})
}

// PostPartial renders only the post article, for the loading placeholder.
func PostPartial(p PostPage) templ.Component {
	return component(func(buf *bytes.Buffer) { writeArticle(buf, p) })
}

// Loading renders the placeholder for a post that is still resolving.
func Loading(p LoadingPage) templ.Component {
	return page(p.Site, p.Meta, func(buf *bytes.Buffer) {
		buf.WriteString(`<div id="post" class="container loading" data-partial="`)
		buf.WriteString(html.EscapeString(PostURL(p.UID) + "?partial=post"))
		buf.WriteString("\">\n<p>Carregando...</p>\n</div>")
	})
}

// PostNotFoundPartial renders the not-found message for the placeholder.
func PostNotFoundPartial() templ.Component {
	return component(func(buf *bytes.Buffer) {
		writeStatus(buf, "Post não encontrado", homeLink)
	})
}

// NotFound renders the 404 page.
func NotFound(p StatusPage) templ.Component {
	return page(p.Site, p.Meta, func(buf *bytes.Buffer) {
		writeStatus(buf, "Página não encontrada", homeLink)
	})
}

// ServerError renders the 500 page.
func ServerError(p StatusPage) templ.Component {
	return page(p.Site, p.Meta, func(buf *bytes.Buffer) {
		writeStatus(buf, "Algo deu errado", "Tente novamente em alguns instantes.")
	})
}
