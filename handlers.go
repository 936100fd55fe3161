package spacetraveling

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// loadMoreFailed is shown to the reader when a load-more request fails.
const loadMoreFailed = "Não foi possível carregar mais posts. Tente novamente."

func moreURL(view string) string {
	return "/more/" + view + "/"
}

func (a *App) handleHome(c echo.Context) error {
	cms := a.cmsFor(c)
	props, err := a.LoadHome(c.Request().Context(), cms)
	if err != nil {
		return fmt.Errorf("load home: %w", err)
	}

	view := HomeView{
		Site: a.Config,
		Meta: PageMeta{
			Title:       a.Config.Name,
			Description: a.Config.Description,
			URL:         BuildURL(a.Config.URL),
			OGType:      "website",
		},
		Posts:   props.PostsPagination.Results,
		Preview: cms.Preview(),
	}
	if props.PostsPagination.NextPage != nil {
		acc := NewAccumulator(cms, a.normalizer, props.PostsPagination)
		view.MoreURL = moreURL(a.Feeds.Create(acc))
	}
	return Render(c, a.Views.Home(view))
}

// handleMore appends the next page to a listing view. It answers with the
// new posts as an HTML fragment, or as a PostPage when JSON is requested.
func (a *App) handleMore(c echo.Context) error {
	id := c.Param("view")
	acc, ok := a.Feeds.Get(id)
	if !ok {
		return message(c, http.StatusNotFound, "Esta página expirou. Recarregue para ver mais posts.")
	}

	appended, err := acc.LoadMore(c.Request().Context())
	if err != nil {
		c.Logger().Warnf("load more %s: %v", id, err)
		return message(c, http.StatusBadGateway, loadMoreFailed)
	}
	if appended == nil {
		appended = []Post{}
	}

	hasMore := acc.HasMore()
	c.Response().Header().Set("X-Has-More", strconv.FormatBool(hasMore))
	if wantsJSON(c) {
		page := PostPage{Results: appended}
		if hasMore {
			next := moreURL(id)
			page.NextPage = &next
		}
		return c.JSON(http.StatusOK, page)
	}
	return Render(c, a.Views.MorePosts(appended))
}

// handlePost renders one post. Any failure to load it sends the reader back
// to the listing page.
func (a *App) handlePost(c echo.Context) error {
	uid := c.Param("uid")
	cms := a.cmsFor(c)
	props, err := a.LoadPost(c.Request().Context(), cms, uid)
	if err != nil {
		c.Logger().Warnf("load post %s: %v", uid, err)
		noStore(c)
		return c.Redirect(http.StatusFound, homeRoute)
	}

	post := props.Post
	if cms.Preview() {
		noStore(c)
	}
	return Render(c, a.Views.Post(PostView{
		Site: a.Config,
		Meta: PageMeta{
			Title:       post.Data.Title + " | " + a.Config.Name,
			Description: post.Data.Subtitle,
			URL:         PostURL(a.Config, post.UID),
			OGType:      "article",
			Image:       post.Data.Banner.URL,
		},
		Post:        post,
		ReadingTime: ReadingTimeMinutes(post.Data.Content),
		JSONLD:      BlogPostingJsonLD(post, a.Config),
		Preview:     cms.Preview(),
	}))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.LoadRecent(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.LoadRecent(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("Disallow: /more/\n")
	b.WriteString("Sitemap: " + strings.TrimRight(a.Config.URL, "/") + "/sitemap.xml\n")
	return c.String(http.StatusOK, b.String())
}

func handleHealthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
