package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/model"
)

const identityKey = "identity"

func setIdentity(c echo.Context, id model.Identity) {
	c.Set(identityKey, id)
	req := c.Request()
	c.SetRequest(req.WithContext(model.WithIdentity(req.Context(), id)))
}

// IdentityFrom returns the identity attached by Authenticate or
// OptionalAuthenticate.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(identityKey).(model.Identity)
	return id, ok
}

// userID is the rate limit and cache key component for the caller: the
// account id when authenticated, "anon" otherwise.
func userID(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok && id.ID != "" {
		return id.ID
	}
	return "anon"
}
