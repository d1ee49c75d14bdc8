// Package handler contains the HTTP endpoint implementations. Handlers
// bind and validate request shapes, call the services, and translate
// sentinel errors into stable machine-readable error codes; business
// rules live in internal/service.
package handler

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/researchportal/completion-ledger/internal/service"
	"github.com/researchportal/completion-ledger/internal/store"
)

// Stable error codes returned in response bodies. Clients branch on
// these, never on message text, so the set is closed: a new failure mode
// gets a new code rather than a reworded message.
const (
	codeUnauthenticated      = "UNAUTHENTICATED"
	codeForbidden            = "FORBIDDEN"
	codeNotFound             = "NOT_FOUND"
	codeTokenRequired        = "TOKEN_REQUIRED"
	codeTokenInvalid         = "TOKEN_INVALID"
	codeTokenExpired         = "TOKEN_EXPIRED"
	codeTokenUsed            = "TOKEN_USED"
	codeAlreadyCompleted     = "ALREADY_COMPLETED"
	codeResearchNotVisible   = "RESEARCH_NOT_VISIBLE"
	codeInvalidCount         = "INVALID_COUNT"
	codeInvalidExpiresInDays = "INVALID_EXPIRES_IN_DAYS"
	codeInvalidPeriod        = "INVALID_PERIOD"
	codeRateLimited          = "RATE_LIMITED"
	codeInternalError        = "INTERNAL_ERROR"
)

func errorJSON(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"error": echo.Map{"code": code, "message": msg}})
}

// writeError maps a service/store error onto its HTTP status and stable
// code. Unknown errors are operational faults: logged with the request
// id and reported as a generic 500 so internals never leak.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrTokenNotFound):
		return errorJSON(c, http.StatusBadRequest, codeTokenInvalid, "token not recognized for this study")
	case errors.Is(err, store.ErrTokenExpired):
		return errorJSON(c, http.StatusBadRequest, codeTokenExpired, "token has expired")
	case errors.Is(err, store.ErrTokenUsed):
		return errorJSON(c, http.StatusConflict, codeTokenUsed, "token has already been redeemed")
	case errors.Is(err, store.ErrAlreadyCompleted):
		return errorJSON(c, http.StatusConflict, codeAlreadyCompleted, "completion already recorded for this study")
	case errors.Is(err, store.ErrResearchNotFound):
		return errorJSON(c, http.StatusNotFound, codeNotFound, "research not found")
	case errors.Is(err, store.ErrUserNotFound):
		return errorJSON(c, http.StatusNotFound, codeNotFound, "user not found")
	case errors.Is(err, service.ErrForbidden):
		return errorJSON(c, http.StatusForbidden, codeForbidden, "admin role required")
	case errors.Is(err, service.ErrTokenRequired):
		return errorJSON(c, http.StatusBadRequest, codeTokenRequired, "token is required")
	case errors.Is(err, service.ErrInvalidCount):
		return errorJSON(c, http.StatusBadRequest, codeInvalidCount, "count must be between 1 and 500")
	case errors.Is(err, service.ErrInvalidExpiresInDays):
		return errorJSON(c, http.StatusBadRequest, codeInvalidExpiresInDays, "expires_in_days must be between 1 and 365")
	case errors.Is(err, service.ErrInvalidPeriod):
		return errorJSON(c, http.StatusBadRequest, codeInvalidPeriod, "period must be week, month or 30d")
	case errors.Is(err, service.ErrResearchNotVisible):
		return errorJSON(c, http.StatusBadRequest, codeResearchNotVisible, "research is not open for completion")
	case errors.Is(err, service.ErrRateLimited):
		var rle *service.RateLimitError
		if errors.As(err, &rle) {
			secs := int(math.Ceil(rle.Decision.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		}
		return errorJSON(c, http.StatusTooManyRequests, codeRateLimited, "too many attempts, slow down")
	}
	log.Printf("[http] internal error request_id=%v: %v", c.Get("request_id"), err)
	return errorJSON(c, http.StatusInternalServerError, codeInternalError, "internal error")
}
