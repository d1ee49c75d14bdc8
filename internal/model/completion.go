package model

import "time"

// Completion kinds. SIMPLE and VERIFIED are independent award paths; a
// user may hold one of each per study but never two of the same kind.
const (
	KindSimple   = "SIMPLE"
	KindVerified = "VERIFIED"
)

// Completion is one point-earning event in the append-only ledger
// (`completions` table). Rows are never updated or deleted; every point
// total in the system is a sum over these rows. The unique key
// (user_id, research_id, kind) is the idempotency mechanism: a duplicate
// insert fails distinguishably instead of double-awarding.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – user who earned the points.
//  ResearchID    – study the points were earned on.
//  Kind          – SIMPLE or VERIFIED.
//  PointsAwarded – points granted by this event (fixed per kind).
//  CreatedAt     – timestamp of the event; drives leaderboard windows.
type Completion struct {
	ID            uint64    // completions.id
	UserID        uint64    // completions.user_id
	ResearchID    uint64    // completions.research_id
	Kind          string    // completions.kind
	PointsAwarded int       // completions.points_awarded
	CreatedAt     time.Time // completions.created_at
}
