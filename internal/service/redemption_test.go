package service_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchportal/completion-ledger/internal/model"
	"github.com/researchportal/completion-ledger/internal/ratelimit"
	"github.com/researchportal/completion-ledger/internal/service"
	"github.com/researchportal/completion-ledger/internal/store"
	"github.com/researchportal/completion-ledger/internal/store/memory"
)

const testSecret = "test-token-secret"

type capturedEvents struct {
	mu     sync.Mutex
	events []service.CompletionEvent
}

func (c *capturedEvents) CompletionVerified(ctx context.Context, ev service.CompletionEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *capturedEvents) all() []service.CompletionEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]service.CompletionEvent(nil), c.events...)
}

type fixture struct {
	st         *memory.Store
	issuer     *service.Issuer
	redemption *service.Redemption
	events     *capturedEvents

	groupID    uint64
	adminID    uint64
	researchID uint64
}

func newFixture(t *testing.T, limiter ratelimit.Limiter) *fixture {
	t.Helper()
	st := memory.New()
	events := &capturedEvents{}
	badges := service.NewBadgeEvaluator(st, service.DefaultBadgeRules())

	f := &fixture{
		st:         st,
		issuer:     service.NewIssuer(st, testSecret),
		redemption: service.NewRedemption(st, limiter, "rl:verify", testSecret, badges, events, 30, 10),
		events:     events,
		groupID:    100,
	}
	f.adminID = st.AddUser("admin@example.com", "Grace Hopper")
	st.SetMember(f.adminID, f.groupID, model.RoleAdmin)
	f.researchID = st.AddGroupResearch(f.groupID, "Sleep study", true, false)
	return f
}

// issue mints n tokens for the fixture study and returns the plaintexts.
func (f *fixture) issue(t *testing.T, n int, expiresInDays *int) []string {
	t.Helper()
	res, err := f.issuer.IssueTokens(context.Background(), f.adminID, f.researchID, n, expiresInDays)
	require.NoError(t, err)
	require.Len(t, res.Tokens, n)
	return res.Tokens
}

func TestRedeemRecordsVerifiedCompletion(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := f.st.AddUser("p1@example.com", "Ada Lovelace")
	plain := f.issue(t, 1, nil)[0]

	comp, err := f.redemption.Redeem(ctx, user, f.researchID, plain)
	require.NoError(t, err)
	assert.Equal(t, model.KindVerified, comp.Kind)
	assert.Equal(t, 30, comp.PointsAwarded)
	assert.Equal(t, user, comp.UserID)
	assert.NotZero(t, comp.ID)

	totals, err := f.st.TotalsForUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, store.Totals{Points: 30, Completions: 1}, totals)

	events := f.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, comp.ID, events[0].CompletionID)
	assert.Equal(t, 30, events[0].PointsAwarded)
}

func TestRedeemToleratesInputNoise(t *testing.T) {
	f := newFixture(t, nil)
	user := f.st.AddUser("p1@example.com", "Ada Lovelace")
	plain := f.issue(t, 1, nil)[0]

	noisy := "  " + plain[:4] + " " + plain[4:] + "\t"
	_, err := f.redemption.Redeem(context.Background(), user, f.researchID, noisy)
	assert.NoError(t, err)
}

func TestRedeemEmptyToken(t *testing.T) {
	f := newFixture(t, nil)
	user := f.st.AddUser("p1@example.com", "Ada Lovelace")

	for _, raw := range []string{"", "   ", "\t\n"} {
		_, err := f.redemption.Redeem(context.Background(), user, f.researchID, raw)
		assert.ErrorIs(t, err, service.ErrTokenRequired, "input %q", raw)
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	f := newFixture(t, nil)
	user := f.st.AddUser("p1@example.com", "Ada Lovelace")

	_, err := f.redemption.Redeem(context.Background(), user, f.researchID, "ABCD-EFGH-JKLM")
	assert.ErrorIs(t, err, store.ErrTokenNotFound)

	// Malformed input maps to the same outcome without a store lookup.
	_, err = f.redemption.Redeem(context.Background(), user, f.researchID, "not-a-token")
	assert.ErrorIs(t, err, store.ErrTokenNotFound)
}

func TestRedeemTokenForOtherStudy(t *testing.T) {
	f := newFixture(t, nil)
	user := f.st.AddUser("p1@example.com", "Ada Lovelace")
	other := f.st.AddGroupResearch(f.groupID, "Memory study", true, false)
	plain := f.issue(t, 1, nil)[0]

	// The token exists but belongs to another study; its existence must
	// not be distinguishable from an invalid token.
	_, err := f.redemption.Redeem(context.Background(), user, other, plain)
	assert.ErrorIs(t, err, store.ErrTokenNotFound)

	// The mismatch attempt must not have consumed it.
	_, err = f.redemption.Redeem(context.Background(), user, f.researchID, plain)
	assert.NoError(t, err)
}

func TestRedeemExpiredToken(t *testing.T) {
	f := newFixture(t, nil)
	user := f.st.AddUser("p1@example.com", "Ada Lovelace")

	issuedAt := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f.issuer.Now = func() time.Time { return issuedAt }
	days := 1
	plain := f.issue(t, 1, &days)[0]

	// 25 hours after issuance the one-day token is gone.
	f.redemption.Now = func() time.Time { return issuedAt.Add(25 * time.Hour) }
	_, err := f.redemption.Redeem(context.Background(), user, f.researchID, plain)
	assert.ErrorIs(t, err, store.ErrTokenExpired)

	// One hour before the deadline it still works.
	f.redemption.Now = func() time.Time { return issuedAt.Add(23 * time.Hour) }
	_, err = f.redemption.Redeem(context.Background(), user, f.researchID, plain)
	assert.NoError(t, err)
}

func TestRedeemUsedToken(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first := f.st.AddUser("p1@example.com", "Ada Lovelace")
	second := f.st.AddUser("p2@example.com", "Mary Shelley")
	plain := f.issue(t, 1, nil)[0]

	_, err := f.redemption.Redeem(ctx, first, f.researchID, plain)
	require.NoError(t, err)

	_, err = f.redemption.Redeem(ctx, second, f.researchID, plain)
	assert.ErrorIs(t, err, store.ErrTokenUsed)

	totals, err := f.st.TotalsForUser(ctx, second)
	require.NoError(t, err)
	assert.Zero(t, totals.Points, "losing claimer must earn nothing")
}

func TestRedeemDuplicateReturnsTokenToPool(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := f.st.AddUser("p1@example.com", "Ada Lovelace")
	other := f.st.AddUser("p2@example.com", "Mary Shelley")
	plains := f.issue(t, 2, nil)

	_, err := f.redemption.Redeem(ctx, user, f.researchID, plains[0])
	require.NoError(t, err)

	// Second token, same user and study: the whole transaction rolls
	// back, so the second token is not wasted.
	_, err = f.redemption.Redeem(ctx, user, f.researchID, plains[1])
	require.ErrorIs(t, err, store.ErrAlreadyCompleted)

	totals, err := f.st.TotalsForUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, store.Totals{Points: 30, Completions: 1}, totals, "no double award")

	// Someone else can still redeem the returned token.
	_, err = f.redemption.Redeem(ctx, other, f.researchID, plains[1])
	assert.NoError(t, err)
}

func TestRedeemSingleWinnerUnderContention(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	plain := f.issue(t, 1, nil)[0]

	const contenders = 32
	users := make([]uint64, contenders)
	for i := range users {
		users[i] = f.st.AddUser(fmt.Sprintf("p%d@example.com", i), fmt.Sprintf("User %d", i))
	}

	var wins, used int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, uid := range users {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			<-start
			_, err := f.redemption.Redeem(ctx, uid, f.researchID, plain)
			switch {
			case err == nil:
				atomic.AddInt64(&wins, 1)
			case assert.ErrorIs(t, err, store.ErrTokenUsed):
				atomic.AddInt64(&used, 1)
			}
		}(uid)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, wins, "exactly one claimer wins")
	assert.EqualValues(t, contenders-1, used)

	var totalPoints int
	for _, uid := range users {
		totals, err := f.st.TotalsForUser(ctx, uid)
		require.NoError(t, err)
		totalPoints += totals.Points
	}
	assert.Equal(t, 30, totalPoints, "one award across all contenders")
}

func TestRedeemRateLimited(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(2, time.Minute)
	f := newFixture(t, limiter)
	ctx := context.Background()
	user := f.st.AddUser("p1@example.com", "Ada Lovelace")

	for i := 0; i < 2; i++ {
		_, err := f.redemption.Redeem(ctx, user, f.researchID, "ABCD-EFGH-JKLM")
		assert.ErrorIs(t, err, store.ErrTokenNotFound, "attempt %d consumes the window", i+1)
	}

	_, err := f.redemption.Redeem(ctx, user, f.researchID, "ABCD-EFGH-JKLM")
	require.ErrorIs(t, err, service.ErrRateLimited)
	var rle *service.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Positive(t, rle.Decision.RetryAfter)

	// The window is per (user, research): another study is unaffected.
	other := f.st.AddGroupResearch(f.groupID, "Memory study", true, false)
	_, err = f.redemption.Redeem(ctx, user, other, "ABCD-EFGH-JKLM")
	assert.ErrorIs(t, err, store.ErrTokenNotFound)
}

func TestCompleteSimple(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := f.st.AddUser("p1@example.com", "Ada Lovelace")

	comp, err := f.redemption.CompleteSimple(ctx, user, f.researchID)
	require.NoError(t, err)
	assert.Equal(t, model.KindSimple, comp.Kind)
	assert.Equal(t, 10, comp.PointsAwarded)

	_, err = f.redemption.CompleteSimple(ctx, user, f.researchID)
	assert.ErrorIs(t, err, store.ErrAlreadyCompleted)

	assert.Empty(t, f.events.all(), "simple completions publish no event")
}

func TestCompleteSimpleVisibilityGate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := f.st.AddUser("p1@example.com", "Ada Lovelace")

	hidden := f.st.AddGroupResearch(f.groupID, "Hidden study", true, true)
	unapproved := f.st.AddGroupResearch(f.groupID, "Draft study", false, false)

	_, err := f.redemption.CompleteSimple(ctx, user, hidden)
	assert.ErrorIs(t, err, service.ErrResearchNotVisible)
	_, err = f.redemption.CompleteSimple(ctx, user, unapproved)
	assert.ErrorIs(t, err, service.ErrResearchNotVisible)
	_, err = f.redemption.CompleteSimple(ctx, user, 9999)
	assert.ErrorIs(t, err, store.ErrResearchNotFound)
}

func TestSimpleAndVerifiedCoexist(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := f.st.AddUser("p1@example.com", "Ada Lovelace")
	plain := f.issue(t, 1, nil)[0]

	_, err := f.redemption.Redeem(ctx, user, f.researchID, plain)
	require.NoError(t, err)
	_, err = f.redemption.CompleteSimple(ctx, user, f.researchID)
	require.NoError(t, err)

	totals, err := f.st.TotalsForUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, store.Totals{Points: 40, Completions: 2}, totals)
}
