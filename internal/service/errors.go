// Package service implements the ledger's use cases over the store
// contracts: token issuance, redemption, badge evaluation, point totals
// and leaderboards. Expected business outcomes are sentinel errors so
// handlers can translate them into stable machine-readable codes;
// anything else is an operational fault.
package service

import (
	"errors"
	"fmt"

	"github.com/researchportal/completion-ledger/internal/ratelimit"
)

// ErrForbidden is returned when the caller is not an ADMIN of the
// study's owning group.
var ErrForbidden = errors.New("forbidden")

// ErrTokenRequired is returned when the submitted token is empty or
// whitespace-only. Rejected before any store access.
var ErrTokenRequired = errors.New("token required")

// ErrInvalidCount is returned when the issuance batch size is out of
// bounds.
var ErrInvalidCount = errors.New("count must be between 1 and 500")

// ErrInvalidExpiresInDays is returned when the optional expiry is out of
// bounds.
var ErrInvalidExpiresInDays = errors.New("expires_in_days must be between 1 and 365")

// ErrInvalidPeriod is returned for an unknown leaderboard window name.
var ErrInvalidPeriod = errors.New("invalid leaderboard period")

// ErrResearchNotVisible is returned when a SIMPLE completion targets a
// study that is not approved or is hidden.
var ErrResearchNotVisible = errors.New("research not visible")

// ErrRateLimited marks throttled attempts. The concrete error is a
// *RateLimitError carrying the limiter decision for response headers.
var ErrRateLimited = errors.New("rate limited")

// RateLimitError wraps a denying limiter decision.
type RateLimitError struct {
	Decision ratelimit.Decision
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.Decision.RetryAfter)
}

// Is lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }
