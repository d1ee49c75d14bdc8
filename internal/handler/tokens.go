package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/researchportal/completion-ledger/internal/service"
)

// TokenHandler exposes batch token issuance to group admins.
type TokenHandler struct {
	Issuer *service.Issuer
}

func NewTokenHandler(i *service.Issuer) *TokenHandler { return &TokenHandler{Issuer: i} }

type issueReq struct {
	Count         int  `json:"count"`
	ExpiresInDays *int `json:"expires_in_days"`
}

type issueResp struct {
	ResearchID uint64     `json:"research_id"`
	Count      int        `json:"count"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Tokens     []string   `json:"tokens"`
}

// Issue mints a batch of single-use verification tokens for a study.
// The plaintexts in the response are shown exactly once; only digests
// are stored.
func (h *TokenHandler) Issue(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
	}
	researchID, ok := pathID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusNotFound, codeNotFound, "research not found")
	}

	var req issueReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid body")
	}

	res, err := h.Issuer.IssueTokens(c.Request().Context(), uid, researchID, req.Count, req.ExpiresInDays)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, issueResp{
		ResearchID: researchID,
		Count:      len(res.Tokens),
		ExpiresAt:  res.ExpiresAt,
		Tokens:     res.Tokens,
	})
}
