package spacetraveling

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// webhookPayload is the part of a Prismic webhook body the app reads.
type webhookPayload struct {
	Secret string `json:"secret"`
	Type   string `json:"type"`
}

// handleRevalidate expires every generated page when the CMS reports a
// publish. Pages are served once more and regenerated in the background.
func (a *App) handleRevalidate(c echo.Context) error {
	if a.Config.RevalidateSecret == "" {
		return echo.ErrNotFound
	}
	if !a.limiter.Check(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"message": "too many requests"})
	}

	var payload webhookPayload
	if err := c.Bind(&payload); err != nil {
		a.limiter.Record(c.RealIP())
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid body"})
	}
	if subtle.ConstantTimeCompare([]byte(payload.Secret), []byte(a.Config.RevalidateSecret)) != 1 {
		a.limiter.Record(c.RealIP())
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "invalid secret"})
	}

	if err := a.Cache.Invalidate(); err != nil {
		return err
	}
	c.Logger().Infof("revalidate: pages expired (webhook %q)", payload.Type)
	return c.JSON(http.StatusOK, map[string]bool{"revalidated": true})
}
