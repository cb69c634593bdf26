package pubfront

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubfront/blog"
	"github.com/eringen/pubfront/listing"
	"github.com/eringen/pubfront/readingtime"
	"github.com/eringen/pubfront/views"
)

func (a *App) handleHome(c echo.Context) error {
	first, err := a.Cache.FirstPage(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(views.HomePage{
		Site: a.Config.site(),
		Meta: views.PageMeta{
			Description: a.Config.Description,
			URL:         BuildURL(a.Config.URL),
			OGType:      "website",
			JSONLD:      WebsiteJsonLD(a.Config),
		},
		State: listing.Initialize(first),
	}))
}

// handleMore serves the next page of cards for the load-more control. The
// browser owns the items already shown, so the state sent to the aggregator
// carries only the cursor. On failure the same control is returned and the
// page appears unchanged.
func (a *App) handleMore(c echo.Context) error {
	st := listing.State{NextPage: c.QueryParam("cursor")}
	next, err := a.aggregator.LoadMore(c.Request().Context(), st)
	if err != nil {
		return Render(c, a.Views.More(views.MorePosts{NextPage: st.NextPage}))
	}
	return Render(c, a.Views.More(views.MorePosts{
		Items:    next.Items[len(st.Items):],
		NextPage: next.NextPage,
	}))
}

// handleAPIPosts returns listing state as JSON. Without a cursor it returns
// the first page; with one, the page the cursor points at.
func (a *App) handleAPIPosts(c echo.Context) error {
	cursor := c.QueryParam("cursor")
	if cursor == "" {
		first, err := a.Cache.FirstPage(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, listing.Initialize(first))
	}
	next, err := a.aggregator.LoadMore(c.Request().Context(), listing.State{NextPage: cursor})
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "could not load more posts"})
	}
	return c.JSON(http.StatusOK, next)
}

func (a *App) handlePost(c echo.Context) error {
	uid := c.Param("slug")
	partial := c.QueryParam("partial") == "post"

	if !partial && a.Config.Fallback && !a.Cache.Generated(uid) {
		c.Response().Header().Set("Cache-Control", "no-store")
		return Render(c, a.Views.Loading(views.LoadingPage{
			Site: a.Config.site(),
			Meta: views.PageMeta{Title: "Carregando..."},
			UID:  uid,
		}))
	}

	post, err := a.Cache.GetPost(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.Response().Header().Set("Cache-Control", "no-store")
			if partial {
				return RenderStatus(c, http.StatusNotFound, a.Views.PostNotFoundPartial())
			}
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.statusPage("Página não encontrada")))
		}
		return err
	}

	page := a.postPage(post)
	if partial {
		return Render(c, a.Views.PostPartial(page))
	}
	return Render(c, a.Views.Post(page))
}

func (a *App) postPage(post blog.PostDetail) views.PostPage {
	minutes, ok := readingtime.Estimate(post.Content)
	return views.PostPage{
		Site: a.Config.site(),
		Meta: views.PageMeta{
			Title:       post.Title,
			Description: post.Subtitle,
			URL:         BuildURL(a.Config.URL, "posts", post.UID),
			OGType:      "article",
			Image:       post.BannerURL,
			JSONLD:      BlogPostingJsonLD(post, a.Config),
		},
		Post:           post,
		ReadingTime:    minutes,
		HasReadingTime: ok,
	}
}

func (a *App) statusPage(title string) views.StatusPage {
	return views.StatusPage{Site: a.Config.site(), Meta: views.PageMeta{Title: title}}
}

func handlePostRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/posts/"+PathEscape(c.Param("slug"))+"/")
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.AllPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.AllPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

// handleRobots generates robots.txt using the site URL.
func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /api/\n\nSitemap: %s/sitemap.xml\n", a.Config.URL)
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.statusPage("Página não encontrada")))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Log.Error("server error", "uri", c.Request().RequestURI, "err", err)
		_ = RenderStatus(c, code, a.Views.ServerError(a.statusPage("Erro")))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
