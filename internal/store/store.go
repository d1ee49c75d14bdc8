package store

import (
	"context"
	"time"

	"github.com/researchportal/completion-ledger/internal/model"
)

// Totals is a pure aggregation over a user's slice of the completions
// ledger: summed points and number of events.
type Totals struct {
	Points      int
	Completions int
}

// LeaderboardRow is one derived ranking row. It is computed per request
// and never persisted. Rank ties are broken by points desc, completions
// desc, user id asc, so re-running the same query yields the same order.
type LeaderboardRow struct {
	Rank        int
	UserID      uint64
	Name        string
	Points      int
	Completions int
}

// Tx is the mutation surface available inside one atomic transaction.
// The redemption flow runs entirely against a single Tx so that a claim
// whose subsequent ledger append fails rolls back with it — a token is
// never burned without a completion being granted.
type Tx interface {
	// ResearchByID loads a study row or returns ErrResearchNotFound.
	ResearchByID(ctx context.Context, id uint64) (*model.Research, error)

	// MemberRole returns the caller's role in the group, or "" when the
	// user is not a member.
	MemberRole(ctx context.Context, userID, groupID uint64) (string, error)

	// InsertTokenBatch persists freshly generated token digests for a
	// study. Plaintexts never reach the storage layer.
	InsertTokenBatch(ctx context.Context, researchID uint64, digests []string, expiresAt *time.Time) error

	// TokenByDigest looks a token up by its digest, or returns
	// ErrTokenNotFound.
	TokenByDigest(ctx context.Context, digest string) (*model.VerifyToken, error)

	// ClaimToken marks the token as redeemed by the user, but only if it
	// is still unredeemed. The update is a single conditional statement;
	// when it affects zero rows a concurrent claim has already won and
	// ErrTokenUsed is returned.
	ClaimToken(ctx context.Context, tokenID, userID uint64, now time.Time) error

	// InsertCompletion appends one ledger event, populating ID and
	// CreatedAt on the passed record. A (user, research, kind) duplicate
	// returns ErrAlreadyCompleted.
	InsertCompletion(ctx context.Context, c *model.Completion) error
}

// Store is the full persistence contract consumed by the services. The
// MySQL implementation lives in internal/repository; an in-memory
// implementation with identical semantics backs the tests.
type Store interface {
	// InTx runs fn inside one transaction. Returning an error rolls the
	// whole transaction back; nil commits it.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// Read-side lookups outside any transaction.
	ResearchByID(ctx context.Context, id uint64) (*model.Research, error)
	MemberRole(ctx context.Context, userID, groupID uint64) (string, error)

	// Ledger aggregation reads. These always recompute from the ledger;
	// there is no cached total anywhere that could drift.
	TotalsForUser(ctx context.Context, userID uint64) (Totals, error)
	TotalsForUserSince(ctx context.Context, userID uint64, since time.Time) (Totals, error)

	// CompletionStats feeds the badge evaluator: total event count and
	// whether any VERIFIED event exists.
	CompletionStats(ctx context.Context, userID uint64) (total int, hasVerified bool, err error)

	// UpsertBadge grants a badge if absent. It reports whether a new
	// grant was created, making redundant evaluation runs harmless.
	UpsertBadge(ctx context.Context, userID uint64, code string) (granted bool, err error)

	// Leaderboard reads, all scoped to events created at or after since.
	Leaderboard(ctx context.Context, since time.Time, limit, offset int) ([]LeaderboardRow, error)
	LeaderboardTotal(ctx context.Context, since time.Time) (int, error)
	LeaderboardRank(ctx context.Context, since time.Time, userID uint64) (*LeaderboardRow, error)
}
