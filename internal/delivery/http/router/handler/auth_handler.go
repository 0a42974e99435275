// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"

	"lookbook/internal/delivery/http/response"
	"lookbook/internal/domain/entity"
	"lookbook/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AuthHandler holds dependencies for login and session handlers.
type AuthHandler struct {
	uc     usecase.AuthUsecase
	logger *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(uc usecase.AuthUsecase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		uc:     uc,
		logger: logger,
	}
}

// loginRequest is the wire shape of a social login call. The credential is the
// provider-issued proof: Apple's identity token or Kakao's access token.
type loginRequest struct {
	Credential string `json:"credential" validate:"required"`
}

// LoginApple handles a login with an Apple identity token.
func (h *AuthHandler) LoginApple(c echo.Context) error {
	return h.login(c, entity.ProviderApple)
}

// LoginKakao handles a login with a Kakao access token.
func (h *AuthHandler) LoginKakao(c echo.Context) error {
	return h.login(c, entity.ProviderKakao)
}

func (h *AuthHandler) login(c echo.Context, provider entity.Provider) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Credential is required")
	}

	output, err := h.uc.Login(c.Request().Context(), &usecase.LoginInput{
		Provider:   provider,
		Credential: req.Credential,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, output, "Login successful")
}

// Me returns the authenticated user's ID resolved from the session token.
func (h *AuthHandler) Me(c echo.Context) error {
	userIDVal := c.Get("userID")
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return response.Unauthorized(c, "SESSION_TOKEN_INVALID", "Invalid user ID in token")
	}

	return response.Success(c, http.StatusOK, map[string]string{"user_id": userID.String()}, "Profile retrieved successfully")
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "Service is healthy")
}
