package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchportal/completion-ledger/internal/model"
	"github.com/researchportal/completion-ledger/internal/service"
	"github.com/researchportal/completion-ledger/internal/store/memory"
)

func seedCompletions(st *memory.Store, user uint64, n int, kind string) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	points := 10
	if kind == model.KindVerified {
		points = 30
	}
	for i := 0; i < n; i++ {
		// distinct research ids keep the uniqueness constraint satisfied
		st.SeedCompletion(user, uint64(1000+i), kind, points, base.Add(time.Duration(i)*time.Hour))
	}
}

func TestBadgeThresholds(t *testing.T) {
	cases := []struct {
		completions int
		want        []string
	}{
		{0, nil},
		{1, []string{model.BadgeBronze1}},
		{4, []string{model.BadgeBronze1}},
		{5, []string{model.BadgeBronze1, model.BadgeBronze2}},
		{15, []string{model.BadgeBronze1, model.BadgeBronze2, model.BadgeBronze3}},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d completions", tc.completions), func(t *testing.T) {
			st := memory.New()
			user := st.AddUser("p@example.com", "Ada Lovelace")
			seedCompletions(st, user, tc.completions, model.KindSimple)

			ev := service.NewBadgeEvaluator(st, service.DefaultBadgeRules())
			granted, err := ev.Evaluate(context.Background(), user)
			require.NoError(t, err)
			assert.Equal(t, tc.want, granted)
		})
	}
}

func TestVerifiedBadge(t *testing.T) {
	st := memory.New()
	user := st.AddUser("p@example.com", "Ada Lovelace")
	seedCompletions(st, user, 1, model.KindVerified)

	ev := service.NewBadgeEvaluator(st, service.DefaultBadgeRules())
	granted, err := ev.Evaluate(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, []string{model.BadgeBronze1, model.BadgeVerified1}, granted)
}

func TestBadgeEvaluationIdempotent(t *testing.T) {
	st := memory.New()
	user := st.AddUser("p@example.com", "Ada Lovelace")
	seedCompletions(st, user, 5, model.KindSimple)

	ev := service.NewBadgeEvaluator(st, service.DefaultBadgeRules())
	ctx := context.Background()

	granted, err := ev.Evaluate(ctx, user)
	require.NoError(t, err)
	assert.Len(t, granted, 2)

	// Re-running against the same ledger grants nothing new.
	granted, err = ev.Evaluate(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, granted)

	// More completions later unlock only the next tier.
	seedCompletions(st, user, 10, model.KindVerified)
	granted, err = ev.Evaluate(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{model.BadgeBronze3, model.BadgeVerified1}, granted)
}

func TestBadgesGrantedThroughRedemption(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := f.st.AddUser("p@example.com", "Ada Lovelace")
	plain := f.issue(t, 1, nil)[0]

	_, err := f.redemption.Redeem(ctx, user, f.researchID, plain)
	require.NoError(t, err)

	// First completion, and a verified one: both badges granted.
	granted, err := service.NewBadgeEvaluator(f.st, service.DefaultBadgeRules()).Evaluate(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, granted, "redemption already ran the evaluator")
}
