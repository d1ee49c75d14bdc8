package repository

import (
	"context"
	"database/sql"
)

// BadgeRepo persists derived badge grants. Grants are monotonic: they
// are created once per (user, code) and never revoked, so the only write
// is an insert-if-absent.
type BadgeRepo struct {
	db *sql.DB
}

// NewBadgeRepo returns a new BadgeRepo bound to the given database.
func NewBadgeRepo(db *sql.DB) *BadgeRepo { return &BadgeRepo{db: db} }

// Upsert grants the badge when the user does not already hold it. INSERT
// IGNORE swallows the duplicate-key case, and the affected-row count
// tells the caller whether a new grant was actually created. Running the
// evaluator twice therefore never produces two grants of the same code.
func (r *BadgeRepo) Upsert(ctx context.Context, userID uint64, code string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO user_badges (user_id, code) VALUES (?, ?)`,
		userID, code,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CodesForUser lists the badge codes the user currently holds.
func (r *BadgeRepo) CodesForUser(ctx context.Context, userID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT code FROM user_badges WHERE user_id = ? ORDER BY granted_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}
