package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/researchportal/completion-ledger/internal/service"
)

// VerifyHandler exposes token redemption and simple completion.
type VerifyHandler struct {
	Redemption *service.Redemption
}

func NewVerifyHandler(r *service.Redemption) *VerifyHandler { return &VerifyHandler{Redemption: r} }

type verifyReq struct {
	Token string `json:"token"`
}

type completionResp struct {
	CompletionID uint64    `json:"completion_id"`
	ResearchID   uint64    `json:"research_id"`
	Kind         string    `json:"kind"`
	Points       int       `json:"points"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Verify redeems a single-use token against the study in the path,
// recording a VERIFIED completion. Exactly one of any set of concurrent
// attempts on the same token succeeds.
func (h *VerifyHandler) Verify(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
	}
	researchID, ok := pathID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusNotFound, codeNotFound, "research not found")
	}

	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid body")
	}

	comp, err := h.Redemption.Redeem(c.Request().Context(), uid, researchID, req.Token)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, completionResp{
		CompletionID: comp.ID,
		ResearchID:   comp.ResearchID,
		Kind:         comp.Kind,
		Points:       comp.PointsAwarded,
		CompletedAt:  comp.CreatedAt,
	})
}

// Complete records an unverified SIMPLE completion for a visible study.
func (h *VerifyHandler) Complete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
	}
	researchID, ok := pathID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusNotFound, codeNotFound, "research not found")
	}

	comp, err := h.Redemption.CompleteSimple(c.Request().Context(), uid, researchID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, completionResp{
		CompletionID: comp.ID,
		ResearchID:   comp.ResearchID,
		Kind:         comp.Kind,
		Points:       comp.PointsAwarded,
		CompletedAt:  comp.CreatedAt,
	})
}
