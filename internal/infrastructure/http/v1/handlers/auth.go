package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"rwpay/internal/core/id"
	"rwpay/internal/domain/auth"
	"rwpay/internal/infrastructure/http/v1/dto"
)

// AuthService is implemented by *auth.Service.
type AuthService interface {
	Login(ctx context.Context, creds auth.Credentials) (*auth.TokenPair, *auth.User, error)
	Refresh(ctx context.Context, refreshToken, userAgent, ipAddress string) (*auth.TokenPair, error)
	Logout(ctx context.Context, userID id.ID) error
	Me(ctx context.Context, userID id.ID) (*auth.User, error)
	CreateAdmin(ctx context.Context, req auth.CreateAdminRequest) (*auth.User, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	*BaseHandler
	service AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service AuthService) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tokens, user, err := h.service.Login(c.Request.Context(), req.ToCredentials(c.Request.UserAgent(), c.ClientIP()))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Tokens: dto.FromTokenPair(tokens),
		User:   dto.FromUser(user),
	})
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tokens, err := h.service.Refresh(c.Request.Context(), req.RefreshToken, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromTokenPair(tokens))
}

// Logout handles POST /auth/logout. All refresh tokens of the user are revoked.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	if err := h.service.Logout(c.Request.Context(), userID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	user, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromUser(user))
}

// CreateAdmin handles POST /auth/admins
func (h *AuthHandler) CreateAdmin(c *gin.Context) {
	var req dto.CreateAdminRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.service.CreateAdmin(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromUser(user))
}
