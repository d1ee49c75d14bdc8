// Package store defines the persistence contracts shared by the MySQL
// repositories and the in-memory implementation, together with the
// sentinel error values that cross the storage boundary. Services and
// handlers compare against these sentinels with errors.Is to translate
// storage outcomes into stable API error codes.
package store

import "errors"

// ErrTokenNotFound is returned when no verification token matches the
// submitted digest, or when the matching token belongs to a different
// study. Both cases surface to the caller as TOKEN_INVALID so that the
// API does not reveal whether a guessed token exists at all.
var ErrTokenNotFound = errors.New("verify token not found")

// ErrTokenExpired is returned when a token's optional expiry has passed.
var ErrTokenExpired = errors.New("verify token expired")

// ErrTokenUsed is returned by the conditional claim when the token has
// already been redeemed — including when a concurrent claim won the race
// between lookup and update.
var ErrTokenUsed = errors.New("verify token already used")

// ErrAlreadyCompleted is returned when inserting a completion violates
// the (user, research, kind) uniqueness of the ledger. The attempt is
// rejected instead of silently double-awarding.
var ErrAlreadyCompleted = errors.New("completion already recorded")

// ErrResearchNotFound is returned when the referenced study does not exist.
var ErrResearchNotFound = errors.New("research not found")

// ErrUserNotFound is returned when a user lookup finds no row.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when registering with an email that is
// already taken.
var ErrEmailExists = errors.New("email already exists")
