// Package router maps URL paths to handlers and attaches the middleware
// each route group needs. Authenticated routes live under /v1 behind
// JWTAuth; the public leaderboard gets per-IP rate limiting, an optional
// identity and a response cache instead.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/researchportal/completion-ledger/internal/handler"
	"github.com/researchportal/completion-ledger/internal/middleware"
)

// RegisterRoutes registers routes that need no dependencies beyond Echo
// itself.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the identity surface: session issuance under
// /v1/auth and the profile endpoint behind JWTAuth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.RefreshTokens)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.POST("/auth/logout", a.Logout)
	auth.GET("/me", a.Me)
}

// RegisterLedger registers the authenticated ledger surface: token
// issuance, redemption, simple completion and the caller's totals.
func RegisterLedger(e *echo.Echo, t *handler.TokenHandler, v *handler.VerifyHandler, p *handler.PointsHandler, jwtSecret string) {
	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.POST("/research/:id/tokens", t.Issue)
	auth.POST("/research/:id/verify", v.Verify)
	auth.POST("/research/:id/complete", v.Complete)
	auth.GET("/me/points", p.MyPoints)
}

// RegisterPublic registers the unauthenticated leaderboard. Middleware
// order matters: the rate limit runs before the cache so a hammering
// client is throttled even on cache hits, and JWTOptional runs last so
// personalised (authenticated) requests bypass the shared cache via
// their Authorization header.
func RegisterPublic(e *echo.Echo, l *handler.LeaderboardHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	chain := append([]echo.MiddlewareFunc{}, mw...)
	chain = append(chain, middleware.JWTOptional(jwtSecret))
	e.GET("/v1/public/leaderboard", l.Public, chain...)
}
