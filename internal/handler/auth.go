package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/researchportal/completion-ledger/internal/config"
	"github.com/researchportal/completion-ledger/internal/repository"
	"github.com/researchportal/completion-ledger/internal/store"
	"github.com/researchportal/completion-ledger/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Refresh *repository.RefreshTokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, r *repository.RefreshTokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Refresh: r}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register creates a user account and returns a token pair immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "email, name and password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Name, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return errorJSON(c, http.StatusConflict, "EMAIL_EXISTS", "email already registered")
		}
		return writeError(c, err)
	}

	return h.issuePair(c, http.StatusCreated, ctx, userPart{ID: uid, Email: req.Email, Name: req.Name})
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "email and password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return errorJSON(c, http.StatusUnauthorized, codeUnauthenticated, "invalid credentials")
		}
		return writeError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return errorJSON(c, http.StatusUnauthorized, codeUnauthenticated, "invalid credentials")
	}

	return h.issuePair(c, http.StatusOK, ctx, userPart{ID: u.ID, Email: u.Email, Name: u.Name})
}

// RefreshTokens rotates a refresh token: validate by hash, revoke the
// old one, issue a new pair.
func (h *AuthHandler) RefreshTokens(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "refresh_token required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))
	uid, err := h.Refresh.Validate(ctx, hash)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, codeUnauthenticated, "invalid refresh token")
	}
	if err := h.Refresh.RevokeByHash(ctx, hash); err != nil {
		return writeError(c, err)
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return h.issuePair(c, http.StatusOK, ctx, userPart{ID: u.ID, Email: u.Email, Name: u.Name})
}

// Logout revokes all the caller's refresh tokens.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Refresh.RevokeAllForUser(ctx, uid); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "logged_out"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: u.Email, Name: u.Name})
}

func (h *AuthHandler) issuePair(c echo.Context, status int, ctx context.Context, user userPart) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, user.ID, user.Email, h.Cfg.AccessTTLMin)
	if err != nil {
		return writeError(c, err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Refresh.Store(ctx, user.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return writeError(c, err)
	}
	return c.JSON(status, authResp{
		User:    user,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw goes back to the client once
	})
}
