package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/researchportal/completion-ledger/internal/repository"
	"github.com/researchportal/completion-ledger/internal/service"
)

// PointsHandler serves the caller's derived standing: point totals and
// earned badges, always recomputed from the ledger.
type PointsHandler struct {
	Points *service.Points
	Badges *repository.BadgeRepo
}

func NewPointsHandler(p *service.Points, b *repository.BadgeRepo) *PointsHandler {
	return &PointsHandler{Points: p, Badges: b}
}

type pointsResp struct {
	Points      int        `json:"points"`
	Completions int        `json:"completions"`
	Since       *time.Time `json:"since,omitempty"`
	Badges      []string   `json:"badges"`
}

// MyPoints returns the caller's totals, optionally restricted to events
// at or after ?since= (RFC 3339).
func (h *PointsHandler) MyPoints(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
	}

	var since *time.Time
	if raw := c.QueryParam("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "INVALID_SINCE", "since must be RFC 3339")
		}
		u := t.UTC()
		since = &u
	}

	ctx := c.Request().Context()
	totals, err := h.Points.MyTotals(ctx, uid, since)
	if err != nil {
		return writeError(c, err)
	}
	badges, err := h.Badges.CodesForUser(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	if badges == nil {
		badges = []string{}
	}
	return c.JSON(http.StatusOK, pointsResp{
		Points:      totals.Points,
		Completions: totals.Completions,
		Since:       since,
		Badges:      badges,
	})
}
