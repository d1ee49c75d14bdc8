// Package middleware contains the HTTP middleware chain: bearer-token
// authentication, per-IP rate limiting for public routes, a Redis
// response cache for the leaderboard, and request id tagging.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// JWTAuth validates a Bearer access token and injects the numeric user
// id and email into the request context under "user_id" and "email".
// Wrap protected routes with it; handlers read the identity via
// c.Get("user_id").(uint64).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, email, ok := parseBearer(c, secret)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": echo.Map{"code": "UNAUTHENTICATED", "message": "missing or invalid bearer token"},
				})
			}
			c.Set("user_id", userID)
			c.Set("email", email)
			return next(c)
		}
	}
}

// JWTOptional parses a Bearer token when present but never rejects the
// request. Public routes use it so an authenticated caller can get
// personalised extras (the leaderboard's own-rank row) while anonymous
// traffic passes through untouched.
func JWTOptional(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if userID, email, ok := parseBearer(c, secret); ok {
				c.Set("user_id", userID)
				c.Set("email", email)
			}
			return next(c)
		}
	}
}

func parseBearer(c echo.Context, secret string) (uint64, string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return 0, "", false
	}
	raw := strings.TrimPrefix(auth, "Bearer ")

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return 0, "", false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", false
	}
	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || userID == 0 {
		return 0, "", false
	}
	email, _ := claims["email"].(string)
	return userID, email, true
}
