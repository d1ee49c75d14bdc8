package service

import (
	"context"

	"github.com/researchportal/completion-ledger/internal/model"
	"github.com/researchportal/completion-ledger/internal/store"
)

// BadgeRule awards Code once the user's total completion count reaches
// Threshold.
type BadgeRule struct {
	Code      string
	Threshold int
}

// DefaultBadgeRules mirrors the launch badge set.
func DefaultBadgeRules() []BadgeRule {
	return []BadgeRule{
		{Code: model.BadgeBronze1, Threshold: 1},
		{Code: model.BadgeBronze2, Threshold: 5},
		{Code: model.BadgeBronze3, Threshold: 15},
	}
}

// BadgeEvaluator derives badge grants from the ledger. Grants are
// append-only: rules are re-checked against current counts and awarding
// an already-held badge is a no-op, so evaluation is idempotent.
type BadgeEvaluator struct {
	store store.Store
	rules []BadgeRule
}

func NewBadgeEvaluator(s store.Store, rules []BadgeRule) *BadgeEvaluator {
	return &BadgeEvaluator{store: s, rules: rules}
}

// Evaluate re-derives the user's badge set from ledger counts and grants
// whatever is newly earned. Returns the codes granted by this call only.
func (b *BadgeEvaluator) Evaluate(ctx context.Context, userID uint64) ([]string, error) {
	total, hasVerified, err := b.store.CompletionStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	var earned []string
	for _, r := range b.rules {
		if total >= r.Threshold {
			earned = append(earned, r.Code)
		}
	}
	if hasVerified {
		earned = append(earned, model.BadgeVerified1)
	}

	var granted []string
	for _, code := range earned {
		fresh, err := b.store.UpsertBadge(ctx, userID, code)
		if err != nil {
			return granted, err
		}
		if fresh {
			granted = append(granted, code)
		}
	}
	return granted, nil
}
