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

// fixedNow is a Wednesday. Its ISO week starts Monday 2025-06-02.
var fixedNow = time.Date(2025, 6, 4, 15, 30, 0, 0, time.UTC)

func newBoard(st *memory.Store) *service.Leaderboard {
	b := service.NewLeaderboard(st)
	b.Now = func() time.Time { return fixedNow }
	return b
}

func TestParsePeriod(t *testing.T) {
	for in, want := range map[string]string{
		"":       service.PeriodWeek,
		"week":   service.PeriodWeek,
		"month":  service.PeriodMonth,
		"30d":    service.PeriodRolling,
		"30days": service.PeriodRolling,
	} {
		got, err := service.ParsePeriod(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"day", "WEEK", "fortnight", "7d"} {
		_, err := service.ParsePeriod(in)
		assert.ErrorIs(t, err, service.ErrInvalidPeriod, "input %q", in)
	}
}

func TestWindowBounds(t *testing.T) {
	b := newBoard(memory.New())

	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), b.SinceFor(service.PeriodWeek),
		"ISO week starts Monday 00:00 UTC")
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), b.SinceFor(service.PeriodMonth))
	assert.Equal(t, fixedNow.Add(-30*24*time.Hour), b.SinceFor(service.PeriodRolling))

	// A Sunday belongs to the week that began the previous Monday.
	b.Now = func() time.Time { return time.Date(2025, 6, 8, 23, 59, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), b.SinceFor(service.PeriodWeek))
}

func TestStandingsWindowFiltering(t *testing.T) {
	st := memory.New()
	b := newBoard(st)
	ctx := context.Background()

	weekStart := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	inWindow := st.AddUser("in@example.com", "Ada Lovelace")
	boundary := st.AddUser("edge@example.com", "Grace Hopper")
	outside := st.AddUser("out@example.com", "Mary Shelley")

	st.SeedCompletion(inWindow, 1, model.KindVerified, 30, weekStart.Add(26*time.Hour))
	// Exactly at the boundary: inclusive.
	st.SeedCompletion(boundary, 2, model.KindSimple, 10, weekStart)
	// One second before Monday 00:00: previous week.
	st.SeedCompletion(outside, 3, model.KindSimple, 10, weekStart.Add(-time.Second))

	standings, err := b.Standings(ctx, "week", 1, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, standings.TotalUsers)
	require.Len(t, standings.Rows, 2)
	assert.Equal(t, inWindow, standings.Rows[0].UserID)
	assert.Equal(t, boundary, standings.Rows[1].UserID)

	// The excluded event still counts in the wider month window.
	standings, err = b.Standings(ctx, "month", 1, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, standings.TotalUsers)
}

func TestStandingsDeterministicTieBreak(t *testing.T) {
	st := memory.New()
	b := newBoard(st)
	ctx := context.Background()
	at := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)

	// a and b tie on points and completions; c has equal points from
	// fewer completions and ranks above both.
	ua := st.AddUser("a@example.com", "Ada Lovelace")
	ub := st.AddUser("b@example.com", "Grace Hopper")
	uc := st.AddUser("c@example.com", "Mary Shelley")
	st.SeedCompletion(ua, 1, model.KindSimple, 10, at)
	st.SeedCompletion(ua, 2, model.KindSimple, 10, at)
	st.SeedCompletion(ua, 3, model.KindSimple, 10, at)
	st.SeedCompletion(ub, 4, model.KindSimple, 10, at)
	st.SeedCompletion(ub, 5, model.KindSimple, 10, at)
	st.SeedCompletion(ub, 6, model.KindSimple, 10, at)
	st.SeedCompletion(uc, 7, model.KindVerified, 30, at)

	for i := 0; i < 3; i++ {
		standings, err := b.Standings(ctx, "week", 1, 10, nil)
		require.NoError(t, err)
		require.Len(t, standings.Rows, 3)
		assert.Equal(t, []uint64{ua, ub, uc}, []uint64{
			standings.Rows[0].UserID, standings.Rows[1].UserID, standings.Rows[2].UserID,
		}, "run %d: completions desc then user id asc break the 30-point tie", i)
		assert.Equal(t, 1, standings.Rows[0].Rank)
		assert.Equal(t, 2, standings.Rows[1].Rank)
		assert.Equal(t, 3, standings.Rows[2].Rank)
	}
}

func TestStandingsPaginationAndMe(t *testing.T) {
	st := memory.New()
	b := newBoard(st)
	ctx := context.Background()
	at := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)

	users := make([]uint64, 7)
	for i := range users {
		users[i] = st.AddUser(fmt.Sprintf("u%d@example.com", i), fmt.Sprintf("User %d", i))
		// Descending points so users[0] leads.
		for j := 0; j <= len(users)-1-i; j++ {
			st.SeedCompletion(users[i], uint64(100*i+j), model.KindSimple, 10, at)
		}
	}

	page1, err := b.Standings(ctx, "week", 1, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, page1.TotalUsers)
	require.Len(t, page1.Rows, 5)
	assert.Equal(t, 1, page1.Rows[0].Rank)
	assert.Equal(t, users[0], page1.Rows[0].UserID)

	page2, err := b.Standings(ctx, "week", 2, 5, nil)
	require.NoError(t, err)
	require.Len(t, page2.Rows, 2)
	assert.Equal(t, 6, page2.Rows[0].Rank)

	empty, err := b.Standings(ctx, "week", 3, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Rows)

	// The caller's own row arrives regardless of the requested page.
	last := users[6]
	withMe, err := b.Standings(ctx, "week", 1, 5, &last)
	require.NoError(t, err)
	require.NotNil(t, withMe.Me)
	assert.Equal(t, 7, withMe.Me.Rank)
	assert.Equal(t, last, withMe.Me.UserID)

	// A user with no events in the window has no row.
	stranger := st.AddUser("none@example.com", "No Events")
	withoutMe, err := b.Standings(ctx, "week", 1, 5, &stranger)
	require.NoError(t, err)
	assert.Nil(t, withoutMe.Me)
}

func TestStandingsClampsPaging(t *testing.T) {
	st := memory.New()
	b := newBoard(st)
	ctx := context.Background()

	standings, err := b.Standings(ctx, "week", 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, standings.Page)
	assert.Equal(t, 10, standings.PageSize)

	standings, err = b.Standings(ctx, "week", -3, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, standings.Page)
	assert.Equal(t, 5, standings.PageSize)

	standings, err = b.Standings(ctx, "week", 50000, 500, nil)
	require.NoError(t, err)
	assert.Equal(t, 10000, standings.Page)
	assert.Equal(t, 50, standings.PageSize)
}

func TestStandingsInvalidPeriod(t *testing.T) {
	b := newBoard(memory.New())
	_, err := b.Standings(context.Background(), "fortnight", 1, 10, nil)
	assert.ErrorIs(t, err, service.ErrInvalidPeriod)
}

func TestPointsTotals(t *testing.T) {
	st := memory.New()
	p := service.NewPoints(st)
	ctx := context.Background()
	user := st.AddUser("p@example.com", "Ada Lovelace")

	early := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	st.SeedCompletion(user, 1, model.KindVerified, 30, early)
	st.SeedCompletion(user, 2, model.KindSimple, 10, late)

	totals, err := p.MyTotals(ctx, user, nil)
	require.NoError(t, err)
	assert.Equal(t, 40, totals.Points)
	assert.Equal(t, 2, totals.Completions)

	cut := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	totals, err = p.MyTotals(ctx, user, &cut)
	require.NoError(t, err)
	assert.Equal(t, 10, totals.Points)
	assert.Equal(t, 1, totals.Completions)
}
