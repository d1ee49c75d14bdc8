package service

import (
	"context"
	"time"

	"github.com/researchportal/completion-ledger/internal/store"
)

// Leaderboard windows. Window boundaries are computed in UTC.
const (
	PeriodWeek    = "week"  // current ISO week, Monday 00:00 UTC
	PeriodMonth   = "month" // current calendar month, 1st 00:00 UTC
	PeriodRolling = "30d"   // rolling 30 days back from now
)

const (
	defaultPage     = 1
	maxPage         = 10000
	defaultPageSize = 10
	minPageSize     = 5
	maxPageSize     = 50
)

// Leaderboard computes ranked point standings over a time window. Every
// call re-aggregates from the ledger, so standings are always consistent
// with recorded completions.
type Leaderboard struct {
	store store.Store

	// Now is replaceable in tests.
	Now func() time.Time
}

func NewLeaderboard(s store.Store) *Leaderboard {
	return &Leaderboard{store: s, Now: time.Now}
}

// Standings is one leaderboard page plus the caller's own row when
// requested and present in the window.
type Standings struct {
	Period     string
	Since      time.Time
	Page       int
	PageSize   int
	TotalUsers int
	Rows       []store.LeaderboardRow
	Me         *store.LeaderboardRow
}

// ParsePeriod maps a period name to its canonical form. Empty input
// defaults to the weekly window.
func ParsePeriod(s string) (string, error) {
	switch s {
	case "", PeriodWeek:
		return PeriodWeek, nil
	case PeriodMonth:
		return PeriodMonth, nil
	case PeriodRolling, "30days":
		return PeriodRolling, nil
	}
	return "", ErrInvalidPeriod
}

// Standings returns one page of the ranked standings for the period.
// meUserID, when non-nil, additionally resolves that user's own row
// regardless of the requested page. Page and page size are clamped to
// their allowed ranges rather than rejected.
func (l *Leaderboard) Standings(ctx context.Context, period string, page, pageSize int, meUserID *uint64) (*Standings, error) {
	period, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	page = clamp(page, defaultPage, 1, maxPage)
	pageSize = clamp(pageSize, defaultPageSize, minPageSize, maxPageSize)

	since := l.SinceFor(period)
	total, err := l.store.LeaderboardTotal(ctx, since)
	if err != nil {
		return nil, err
	}
	rows, err := l.store.Leaderboard(ctx, since, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	out := &Standings{
		Period:     period,
		Since:      since,
		Page:       page,
		PageSize:   pageSize,
		TotalUsers: total,
		Rows:       rows,
	}
	if meUserID != nil {
		me, err := l.store.LeaderboardRank(ctx, since, *meUserID)
		if err != nil {
			return nil, err
		}
		out.Me = me
	}
	return out, nil
}

// SinceFor computes the inclusive lower bound of the period's window.
func (l *Leaderboard) SinceFor(period string) time.Time {
	now := l.Now().UTC()
	switch period {
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	case PeriodRolling:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return startOfISOWeek(now)
	}
}

// startOfISOWeek returns Monday 00:00:00 UTC of now's ISO week.
func startOfISOWeek(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	wd := int(day.Weekday())
	if wd == 0 { // Sunday belongs to the week that started six days back
		wd = 7
	}
	return day.AddDate(0, 0, -(wd - 1))
}

func clamp(v, def, min, max int) int {
	if v == 0 {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
