package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/researchportal/completion-ledger/internal/model"
	"github.com/researchportal/completion-ledger/internal/store"
)

// mysqlDupEntry is the MySQL error number for a unique key violation.
const mysqlDupEntry = 1062

// CompletionRepo provides access to the completions ledger. The table is
// append-only: rows are inserted exactly once and never updated or
// deleted. Point balances and leaderboards are always recomputed from
// these rows, never from a denormalized counter.
type CompletionRepo struct {
	db *sql.DB
}

// NewCompletionRepo returns a new CompletionRepo bound to the given database.
func NewCompletionRepo(db *sql.DB) *CompletionRepo { return &CompletionRepo{db: db} }

// CreateTx appends one ledger event inside the provided transaction and
// populates the generated ID and CreatedAt on the record. A violation of
// the (user_id, research_id, kind) unique key is translated into
// store.ErrAlreadyCompleted so callers can distinguish the duplicate
// from an operational failure.
func (r *CompletionRepo) CreateTx(ctx context.Context, tx *sql.Tx, c *model.Completion) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO completions (user_id, research_id, kind, points_awarded) VALUES (?, ?, ?, ?)`,
		c.UserID, c.ResearchID, c.Kind, c.PointsAwarded,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDupEntry {
			return store.ErrAlreadyCompleted
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	// Query back to populate the DB-assigned timestamp.
	return tx.QueryRowContext(ctx,
		`SELECT created_at FROM completions WHERE id = ?`, c.ID,
	).Scan(&c.CreatedAt)
}

// TotalsForUser sums points and counts events over the user's full
// ledger history.
func (r *CompletionRepo) TotalsForUser(ctx context.Context, userID uint64) (store.Totals, error) {
	var t store.Totals
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points_awarded), 0), COUNT(*) FROM completions WHERE user_id = ?`,
		userID,
	).Scan(&t.Points, &t.Completions)
	return t, err
}

// TotalsForUserSince is TotalsForUser restricted to events created at or
// after since. The boundary is inclusive, matching the leaderboard
// window semantics.
func (r *CompletionRepo) TotalsForUserSince(ctx context.Context, userID uint64, since time.Time) (store.Totals, error) {
	var t store.Totals
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points_awarded), 0), COUNT(*) FROM completions WHERE user_id = ? AND created_at >= ?`,
		userID, since.UTC(),
	).Scan(&t.Points, &t.Completions)
	return t, err
}

// Stats returns the aggregates the badge evaluator needs: the user's
// total completion count and whether any VERIFIED event exists.
func (r *CompletionRepo) Stats(ctx context.Context, userID uint64) (int, bool, error) {
	var (
		total    int
		verified int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(kind = 'VERIFIED'), 0) FROM completions WHERE user_id = ?`,
		userID,
	).Scan(&total, &verified)
	if err != nil {
		return 0, false, err
	}
	return total, verified > 0, nil
}

// leaderboardCTE aggregates the window's ledger slice per user and ranks
// it with the deterministic tie-break: points desc, completions desc,
// user id asc. RANK() assigns equal ranks to exact ties, which cannot
// occur here because user_id is unique within the aggregation.
const leaderboardCTE = `
WITH agg AS (
    SELECT c.user_id,
           COALESCE(SUM(c.points_awarded), 0) AS points,
           COUNT(*) AS completions
    FROM completions c
    WHERE c.created_at >= ?
    GROUP BY c.user_id
),
ranked AS (
    SELECT RANK() OVER (ORDER BY a.points DESC, a.completions DESC, a.user_id ASC) AS rnk,
           a.user_id, a.points, a.completions
    FROM agg a
)`

// Leaderboard returns one page of ranked rows for events created at or
// after since, joined with user display names.
func (r *CompletionRepo) Leaderboard(ctx context.Context, since time.Time, limit, offset int) ([]store.LeaderboardRow, error) {
	const q = leaderboardCTE + `
SELECT r.rnk, r.user_id, u.name, r.points, r.completions
FROM ranked r
JOIN users u ON u.id = r.user_id
ORDER BY r.rnk ASC
LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, since.UTC(), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.LeaderboardRow
	for rows.Next() {
		var row store.LeaderboardRow
		if err := rows.Scan(&row.Rank, &row.UserID, &row.Name, &row.Points, &row.Completions); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LeaderboardTotal counts the distinct users with at least one event in
// the window, i.e. the total number of leaderboard rows across pages.
func (r *CompletionRepo) LeaderboardTotal(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM completions WHERE created_at >= ?`,
		since.UTC(),
	).Scan(&n)
	return n, err
}

// LeaderboardRank computes a single user's row with the same window and
// ordering as Leaderboard, so the "my rank" figure is consistent with
// the paginated table even when the user falls outside the current page.
// Returns (nil, nil) when the user has no events in the window.
func (r *CompletionRepo) LeaderboardRank(ctx context.Context, since time.Time, userID uint64) (*store.LeaderboardRow, error) {
	const q = leaderboardCTE + `
SELECT r.rnk, r.user_id, u.name, r.points, r.completions
FROM ranked r
JOIN users u ON u.id = r.user_id
WHERE r.user_id = ?`
	var row store.LeaderboardRow
	err := r.db.QueryRowContext(ctx, q, since.UTC(), userID).Scan(
		&row.Rank, &row.UserID, &row.Name, &row.Points, &row.Completions,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
