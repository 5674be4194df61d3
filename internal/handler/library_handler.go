package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-review/internal/middleware"
	"github.com/stemsi/exstem-review/internal/model"
	"github.com/stemsi/exstem-review/internal/response"
)

// Library is the part of service.LibraryService used by LibraryHandler.
type Library interface {
	List(ctx context.Context, userID int) ([]model.LibraryEntry, error)
	Add(ctx context.Context, userID int, reviewerID uuid.UUID) error
	Remove(ctx context.Context, userID int, reviewerID uuid.UUID) error
}

// LibraryHandler manages the caller's saved reviewers.
type LibraryHandler struct {
	library Library
	log     zerolog.Logger
}

// NewLibraryHandler creates a new LibraryHandler.
func NewLibraryHandler(library Library, log zerolog.Logger) *LibraryHandler {
	return &LibraryHandler{
		library: library,
		log:     log.With().Str("component", "library_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/library
func (h *LibraryHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	entries, err := h.library.List(c.Request.Context(), claims.UserID)
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, entries)
}

// Add godoc
// POST /api/v1/library/:reviewer_id
func (h *LibraryHandler) Add(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	reviewerID, ok := parseUUIDParam(c, "reviewer_id")
	if !ok {
		return
	}

	if err := h.library.Add(c.Request.Context(), claims.UserID, reviewerID); err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{})
}

// Remove godoc
// DELETE /api/v1/library/:reviewer_id
func (h *LibraryHandler) Remove(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	reviewerID, ok := parseUUIDParam(c, "reviewer_id")
	if !ok {
		return
	}

	if err := h.library.Remove(c.Request.Context(), claims.UserID, reviewerID); err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}
