package model

import "time"

// Badge codes granted by the evaluator. Bronze tiers are driven by the
// total completion count; VERIFIED_1 marks the first verified completion.
const (
	BadgeBronze1   = "BRONZE_1"
	BadgeBronze2   = "BRONZE_2"
	BadgeBronze3   = "BRONZE_3"
	BadgeVerified1 = "VERIFIED_1"
)

// UserBadge is a derived, monotonic achievement grant in the
// `user_badges` table. Grants are upsert-if-absent on the unique pair
// (user_id, code) and are never revoked.
type UserBadge struct {
	ID        uint64    // user_badges.id
	UserID    uint64    // user_badges.user_id
	Code      string    // user_badges.code
	GrantedAt time.Time // user_badges.granted_at
}
