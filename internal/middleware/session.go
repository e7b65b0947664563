package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "tally/internal/errors"
	"tally/internal/session"
	"tally/internal/telemetry"
)

// CookieName is the session cookie.
const CookieName = "session"

const contextUserIDKey = "userID"

// SessionAuth resolves the session cookie to a user id and stores it on the
// echo context. Requests without a valid session get a 401; session-store
// failures surface as 500 rather than letting the request through.
func SessionAuth(manager *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(CookieName)
			if err != nil {
				return unauthorized()
			}
			userID, err := manager.Resolve(c.Request().Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, apperrors.ErrNoSession) {
					return unauthorized()
				}
				return echo.NewHTTPError(http.StatusInternalServerError, apperrors.ErrorResponse{
					Error: "internal server error",
					Code:  "INTERNAL_ERROR",
				})
			}

			c.Set(contextUserIDKey, userID)
			span := trace.SpanFromContext(c.Request().Context())
			span.SetAttributes(attribute.String("user.hash",
				telemetry.HashID(strconv.FormatUint(uint64(userID), 10))))
			return next(c)
		}
	}
}

// UserID returns the authenticated user id placed by SessionAuth.
func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(contextUserIDKey).(uint)
	return id, ok
}

func unauthorized() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
		Error: "not authenticated",
		Code:  "NO_SESSION",
	})
}
