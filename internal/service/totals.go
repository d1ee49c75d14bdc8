package service

import (
	"context"
	"time"

	"github.com/researchportal/completion-ledger/internal/store"
)

// Points reads a user's derived point standing straight from the ledger.
type Points struct {
	store store.Store
}

func NewPoints(s store.Store) *Points {
	return &Points{store: s}
}

// MyTotals returns the user's all-time totals, or totals since the given
// instant when since is non-nil.
func (p *Points) MyTotals(ctx context.Context, userID uint64, since *time.Time) (store.Totals, error) {
	if since != nil {
		return p.store.TotalsForUserSince(ctx, userID, since.UTC())
	}
	return p.store.TotalsForUser(ctx, userID)
}
