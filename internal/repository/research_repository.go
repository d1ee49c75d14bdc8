package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/researchportal/completion-ledger/internal/model"
	"github.com/researchportal/completion-ledger/internal/store"
)

// ResearchRepo reads study rows. The ledger never writes research
// records; it only needs identity, the owning group and the moderation
// flags that gate the SIMPLE completion path.
type ResearchRepo struct {
	db *sql.DB
}

// NewResearchRepo returns a new ResearchRepo bound to the given database.
func NewResearchRepo(db *sql.DB) *ResearchRepo { return &ResearchRepo{db: db} }

const researchSelect = `SELECT id, group_id, title, is_approved, is_hidden, created_at FROM research WHERE id = ?`

// GetByID loads a study or returns store.ErrResearchNotFound.
func (r *ResearchRepo) GetByID(ctx context.Context, id uint64) (*model.Research, error) {
	return scanResearch(r.db.QueryRowContext(ctx, researchSelect, id))
}

// GetByIDTx is GetByID within an existing transaction.
func (r *ResearchRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Research, error) {
	return scanResearch(tx.QueryRowContext(ctx, researchSelect, id))
}

func scanResearch(row *sql.Row) (*model.Research, error) {
	var res model.Research
	err := row.Scan(&res.ID, &res.GroupID, &res.Title, &res.IsApproved, &res.IsHidden, &res.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrResearchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}
