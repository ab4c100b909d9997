package mw

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// tokenKey is the echo context key the bearer credential is stored under.
const tokenKey = "bearerToken"

// RequireBearer extracts the bearer credential from the Authorization
// header and runs a structural check on it before any provider round-trip.
// Actual verification happens against the identity provider downstream;
// this only rejects requests that cannot possibly carry a valid token.
func RequireBearer() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, jwt.MapClaims{}); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token format")
			}

			c.Set(tokenKey, tokenStr)
			return next(c)
		}
	}
}

// Token returns the bearer credential extracted by RequireBearer, or ""
// when the route is not behind the middleware.
func Token(c echo.Context) string {
	tok, _ := c.Get(tokenKey).(string)
	return tok
}
