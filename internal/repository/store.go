// Package repository implements the persistence contracts over MySQL.
// Each repo struct wraps one table; Store aggregates them behind the
// store.Store interface that the services consume. Methods with a Tx
// suffix run against a caller-owned *sql.Tx so multi-table invariants
// (claim + ledger append) commit or roll back together.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/researchportal/completion-ledger/internal/model"
	"github.com/researchportal/completion-ledger/internal/store"
)

// Store bundles the repositories into one store.Store implementation.
type Store struct {
	db          *sql.DB
	Research    *ResearchRepo
	Members     *MemberRepo
	Tokens      *VerifyTokenRepo
	Completions *CompletionRepo
	Badges      *BadgeRepo
}

// NewStore builds a Store and its repositories over one database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:          db,
		Research:    NewResearchRepo(db),
		Members:     NewMemberRepo(db),
		Tokens:      NewVerifyTokenRepo(db),
		Completions: NewCompletionRepo(db),
		Badges:      NewBadgeRepo(db),
	}
}

// DB exposes the underlying handle for wiring (migrations, auth repos).
func (s *Store) DB() *sql.DB { return s.db }

// InTx begins a transaction, runs fn against it and commits when fn
// returns nil. Any error — including the expected claim/duplicate
// sentinels — rolls the whole transaction back, which is what returns a
// claimed token to the pool when the ledger append fails.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) ResearchByID(ctx context.Context, id uint64) (*model.Research, error) {
	return s.Research.GetByID(ctx, id)
}

func (s *Store) MemberRole(ctx context.Context, userID, groupID uint64) (string, error) {
	return s.Members.Role(ctx, userID, groupID)
}

func (s *Store) TotalsForUser(ctx context.Context, userID uint64) (store.Totals, error) {
	return s.Completions.TotalsForUser(ctx, userID)
}

func (s *Store) TotalsForUserSince(ctx context.Context, userID uint64, since time.Time) (store.Totals, error) {
	return s.Completions.TotalsForUserSince(ctx, userID, since)
}

func (s *Store) CompletionStats(ctx context.Context, userID uint64) (int, bool, error) {
	return s.Completions.Stats(ctx, userID)
}

func (s *Store) UpsertBadge(ctx context.Context, userID uint64, code string) (bool, error) {
	return s.Badges.Upsert(ctx, userID, code)
}

func (s *Store) Leaderboard(ctx context.Context, since time.Time, limit, offset int) ([]store.LeaderboardRow, error) {
	return s.Completions.Leaderboard(ctx, since, limit, offset)
}

func (s *Store) LeaderboardTotal(ctx context.Context, since time.Time) (int, error) {
	return s.Completions.LeaderboardTotal(ctx, since)
}

func (s *Store) LeaderboardRank(ctx context.Context, since time.Time, userID uint64) (*store.LeaderboardRow, error) {
	return s.Completions.LeaderboardRank(ctx, since, userID)
}

// sqlTx adapts one *sql.Tx to the store.Tx mutation surface.
type sqlTx struct {
	tx *sql.Tx
	s  *Store
}

func (t *sqlTx) ResearchByID(ctx context.Context, id uint64) (*model.Research, error) {
	return t.s.Research.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) MemberRole(ctx context.Context, userID, groupID uint64) (string, error) {
	return t.s.Members.RoleTx(ctx, t.tx, userID, groupID)
}

func (t *sqlTx) InsertTokenBatch(ctx context.Context, researchID uint64, digests []string, expiresAt *time.Time) error {
	return t.s.Tokens.InsertBatchTx(ctx, t.tx, researchID, digests, expiresAt)
}

func (t *sqlTx) TokenByDigest(ctx context.Context, digest string) (*model.VerifyToken, error) {
	return t.s.Tokens.ByDigestTx(ctx, t.tx, digest)
}

func (t *sqlTx) ClaimToken(ctx context.Context, tokenID, userID uint64, now time.Time) error {
	return t.s.Tokens.ClaimTx(ctx, t.tx, tokenID, userID, now)
}

func (t *sqlTx) InsertCompletion(ctx context.Context, c *model.Completion) error {
	return t.s.Completions.CreateTx(ctx, t.tx, c)
}
