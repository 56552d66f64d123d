package handler

import (
	"net/http"
	"slices"

	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes registers the signup/token handshake. Extra handlers
// (rate limiting) run before signup and token issue.
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, limit ...gin.HandlerFunc) {
	limited := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(slices.Clone(limit), handler)
	}
	auth := router.Group("/auth")
	{
		auth.POST("/signup/", limited(h.Signup)...)
		auth.POST("/token/", limited(h.Token)...)
		auth.POST("/token/refresh/", h.Refresh)
	}
}

// Signup registers a user and mails a confirmation code
// POST /v1/auth/signup/
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.authService.Signup(ctx, req.Username, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SignupResponse{Username: user.Username, Email: user.Email})
}

// Token exchanges a confirmation code for tokens
// POST /v1/auth/token/
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	access, refresh, err := h.authService.ObtainToken(ctx, req.Username, req.ConfirmationCode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TokenResponse{Token: access, Refresh: refresh})
}

// Refresh handles token refresh
// POST /v1/auth/token/refresh/
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	access, err := h.authService.Refresh(ctx, req.Refresh)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RefreshResponse{Token: access})
}
