package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-review/internal/middleware"
	"github.com/stemsi/exstem-review/internal/model"
	"github.com/stemsi/exstem-review/internal/response"
	"github.com/stemsi/exstem-review/internal/validator"
)

// Authenticator is the part of service.AuthService used by AuthHandler.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*model.LoginResponse, error)
	Me(ctx context.Context, userID int) (*model.User, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	auth Authenticator
	log  zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth Authenticator, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth: auth,
		log:  log.With().Str("component", "auth_handler").Logger(),
	}
}

// Login godoc
// POST /api/v1/auth/login
// Validates email + password and returns a JWT with the user profile.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	out, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failFromService(c, h.log, err)
		return
	}

	h.log.Info().Int("user_id", out.User.ID).Msg("User logged in")
	response.Success(c, http.StatusOK, out)
}

// Me godoc
// GET /api/v1/auth/me
// Returns the profile of the currently authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	user, err := h.auth.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}
