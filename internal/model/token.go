package model

import "time"

// VerifyToken is a single-use redemption credential for one research
// study, stored in the `verify_tokens` table. Only the keyed digest of
// the plaintext is persisted; the plaintext leaves the system exactly
// once, in the issuance response. A token transitions from unredeemed to
// redeemed at most once: the claim is a conditional UPDATE guarded by
// `used_at IS NULL`, so concurrent claimers serialize in the database.
//
// Fields:
//  ID           – primary key identifier.
//  ResearchID   – study the token was issued for.
//  TokenHash    – HMAC-SHA256 hex digest of the normalized plaintext.
//  ExpiresAt    – optional expiry; nil means the token never expires.
//  UsedAt       – when the token was claimed (nil until used).
//  UsedByUserID – who claimed it (nil until used).
//  CreatedAt    – timestamp of issuance.
type VerifyToken struct {
	ID           uint64     // verify_tokens.id
	ResearchID   uint64     // verify_tokens.research_id
	TokenHash    string     // verify_tokens.token_hash
	ExpiresAt    *time.Time // verify_tokens.expires_at (nullable)
	UsedAt       *time.Time // verify_tokens.used_at (nullable)
	UsedByUserID *uint64    // verify_tokens.used_by_user_id (nullable)
	CreatedAt    time.Time  // verify_tokens.created_at
}

// Expired reports whether the token's optional expiry has passed at the
// given instant. Tokens without an expiry never expire.
func (t VerifyToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}
