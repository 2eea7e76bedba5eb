package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// userContextKey is the echo context key for the authenticated user.
const userContextKey = "authenticated_user"

// Middleware returns an Echo middleware that resolves the Authorization
// bearer token to a user, stores the user in the Echo context, and stamps
// the user ID into the request context for log correlation.
//
// Requests without a valid session get 401.
func Middleware(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			user, err := svc.Authenticate(c.Request().Context(), token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			c.Set(userContextKey, user)
			ctx := logging.WithUserID(c.Request().Context(), user.ID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user set by Middleware. Handlers
// behind the middleware can rely on a non-nil result.
func CurrentUser(c echo.Context) *model.User {
	if u, ok := c.Get(userContextKey).(*model.User); ok {
		return u
	}
	return nil
}

// bearerToken extracts the token from an Authorization header value.
// Returns "" for missing or non-bearer headers.
func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
