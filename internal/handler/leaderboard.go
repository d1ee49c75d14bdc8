package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/researchportal/completion-ledger/internal/service"
	"github.com/researchportal/completion-ledger/internal/store"
)

// LeaderboardHandler serves the public standings page.
type LeaderboardHandler struct {
	Board *service.Leaderboard
}

func NewLeaderboardHandler(b *service.Leaderboard) *LeaderboardHandler {
	return &LeaderboardHandler{Board: b}
}

type leaderboardEntry struct {
	Rank        int    `json:"rank"`
	DisplayName string `json:"display_name"`
	Points      int    `json:"points"`
	Completions int    `json:"completions"`
}

type leaderboardResp struct {
	Period     string             `json:"period"`
	Since      time.Time          `json:"since"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalUsers int                `json:"total_users"`
	Entries    []leaderboardEntry `json:"entries"`
	Me         *leaderboardEntry  `json:"me,omitempty"`
}

// Public returns one page of the windowed standings. The route carries
// no auth requirement, but when a valid bearer token is present the
// response additionally includes the caller's own row. Display names
// are masked; user ids never appear.
func (h *LeaderboardHandler) Public(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	var me *uint64
	if uid, err := getUserID(c); err == nil {
		me = &uid
	}

	st, err := h.Board.Standings(c.Request().Context(), c.QueryParam("period"), page, pageSize, me)
	if err != nil {
		return writeError(c, err)
	}

	entries := make([]leaderboardEntry, 0, len(st.Rows))
	for _, row := range st.Rows {
		entries = append(entries, maskRow(row))
	}
	resp := leaderboardResp{
		Period:     st.Period,
		Since:      st.Since,
		Page:       st.Page,
		PageSize:   st.PageSize,
		TotalUsers: st.TotalUsers,
		Entries:    entries,
	}
	if st.Me != nil {
		e := maskRow(*st.Me)
		resp.Me = &e
	}
	return c.JSON(http.StatusOK, resp)
}

func maskRow(row store.LeaderboardRow) leaderboardEntry {
	return leaderboardEntry{
		Rank:        row.Rank,
		DisplayName: maskName(row.Name, row.UserID),
		Points:      row.Points,
		Completions: row.Completions,
	}
}

// maskName reduces a full name to first name plus last initial, e.g.
// "Ada Lovelace" -> "Ada L." A blank name falls back to an id-derived
// placeholder so rows stay distinguishable.
func maskName(name string, userID uint64) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		id := strconv.FormatUint(userID, 10)
		if len(id) > 4 {
			id = id[len(id)-4:]
		}
		return "Student " + id
	}
	if len(parts) == 1 {
		return parts[0]
	}
	last := []rune(parts[len(parts)-1])
	return fmt.Sprintf("%s %c.", parts[0], last[0])
}
