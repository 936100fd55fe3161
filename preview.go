package spacetraveling

import (
	"errors"
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/prismic"
)

const previewRefKey = "ref"

// previewRef returns the preview ref of the request: the signed session
// first, then the cookie written by the Prismic toolbar.
func (a *App) previewRef(c echo.Context) string {
	repo := a.CMS.Repository()
	if sess, err := session.Get(sessionName, c); err == nil {
		if ref, ok := sess.Values[previewRefKey].(string); ok && prismic.ValidPreviewToken(ref, repo) {
			return ref
		}
	}
	if cookie, err := c.Cookie(prismic.PreviewCookieName); err == nil {
		return prismic.PreviewRefFromCookie(cookie.Value, repo)
	}
	return ""
}

// cmsFor returns the CMS client serving the request, pinned to the preview
// ref when the request is in preview mode.
func (a *App) cmsFor(c echo.Context) *prismic.Client {
	return a.CMS.WithPreview(a.previewRef(c))
}

func setPreviewSession(c echo.Context, ref string) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[previewRefKey] = ref
	return sess.Save(c.Request(), c.Response())
}

func clearPreviewSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	delete(sess.Values, previewRefKey)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// handlePreview enters preview mode with the token issued by the CMS and
// redirects to the previewed document.
func (a *App) handlePreview(c echo.Context) error {
	noStore(c)
	ip := c.RealIP()
	if !a.limiter.Allow(ip) {
		return c.String(http.StatusTooManyRequests, "Too many requests. Try again later.")
	}

	token := c.QueryParam("token")
	if !prismic.ValidPreviewToken(token, a.CMS.Repository()) {
		return c.String(http.StatusBadRequest, "Invalid preview token")
	}
	if err := setPreviewSession(c, token); err != nil {
		return err
	}

	dest := homeRoute
	if id := c.QueryParam("documentId"); id != "" {
		doc, err := a.CMS.WithPreview(token).FetchByID(c.Request().Context(), id)
		switch {
		case err == nil && doc.Type == PostType && doc.UID != "":
			dest = postRoute(doc.UID)
		case err != nil && !errors.Is(err, prismic.ErrNotFound):
			c.Logger().Warnf("resolve preview document %s: %v", id, err)
		}
	}
	return c.Redirect(http.StatusTemporaryRedirect, dest)
}

// handleExitPreview leaves preview mode.
func (a *App) handleExitPreview(c echo.Context) error {
	noStore(c)
	if err := clearPreviewSession(c); err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:   prismic.PreviewCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	return c.Redirect(http.StatusTemporaryRedirect, homeRoute)
}
