package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/researchportal/completion-ledger/internal/model"
	"github.com/researchportal/completion-ledger/internal/store"
)

// VerifyTokenRepo provides data access to the verify_tokens table. Rows
// are created in batches at issuance time and mutated exactly once, by
// the conditional claim. Tokens are never deleted; a used token is the
// audit record of its own redemption. All timestamps are UTC.
type VerifyTokenRepo struct {
	db *sql.DB
}

// NewVerifyTokenRepo returns a new VerifyTokenRepo bound to the given database.
func NewVerifyTokenRepo(db *sql.DB) *VerifyTokenRepo { return &VerifyTokenRepo{db: db} }

// InsertBatchTx persists a batch of token digests for one study inside
// the provided transaction. Only digests are stored — the plaintexts
// belong to the caller and are never seen by the storage layer. The
// caller must commit or roll back the transaction.
func (r *VerifyTokenRepo) InsertBatchTx(ctx context.Context, tx *sql.Tx, researchID uint64, digests []string, expiresAt *time.Time) error {
	if len(digests) == 0 {
		return nil
	}
	query := `INSERT INTO verify_tokens (research_id, token_hash, expires_at) VALUES `
	args := make([]interface{}, 0, len(digests)*3)
	for i, d := range digests {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		var exp interface{}
		if expiresAt != nil {
			exp = expiresAt.UTC()
		}
		args = append(args, researchID, d, exp)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ByDigestTx looks up a token row by its unique digest within the
// transaction. Returns store.ErrTokenNotFound when no row matches.
func (r *VerifyTokenRepo) ByDigestTx(ctx context.Context, tx *sql.Tx, digest string) (*model.VerifyToken, error) {
	const q = `SELECT id, research_id, token_hash, expires_at, used_at, used_by_user_id, created_at
	           FROM verify_tokens WHERE token_hash = ? LIMIT 1`
	var (
		t         model.VerifyToken
		expiresAt sql.NullTime
		usedAt    sql.NullTime
		usedBy    sql.NullInt64
	)
	err := tx.QueryRowContext(ctx, q, digest).Scan(
		&t.ID, &t.ResearchID, &t.TokenHash, &expiresAt, &usedAt, &usedBy, &t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		exp := expiresAt.Time
		t.ExpiresAt = &exp
	}
	if usedAt.Valid {
		ua := usedAt.Time
		t.UsedAt = &ua
	}
	if usedBy.Valid {
		ub := uint64(usedBy.Int64)
		t.UsedByUserID = &ub
	}
	return &t, nil
}

// ClaimTx performs the single-use claim: it sets used_at and the
// claiming user, but only when used_at is still NULL. The condition and
// the write are one atomic statement, so two concurrent claimers cannot
// both succeed — the loser sees zero affected rows and gets
// store.ErrTokenUsed. This is the core concurrency primitive of the
// subsystem; it must never be split into a read-then-write pair.
func (r *VerifyTokenRepo) ClaimTx(ctx context.Context, tx *sql.Tx, tokenID, userID uint64, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE verify_tokens SET used_at = ?, used_by_user_id = ? WHERE id = ? AND used_at IS NULL`,
		now.UTC(), userID, tokenID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrTokenUsed
	}
	return nil
}
