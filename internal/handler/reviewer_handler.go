package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-review/internal/model"
	"github.com/stemsi/exstem-review/internal/response"
)

// ReviewerCatalog is the part of service.ReviewerService used by ReviewerHandler.
type ReviewerCatalog interface {
	List(ctx context.Context) ([]model.Reviewer, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Reviewer, error)
}

// ReviewerHandler serves the reviewer catalog.
type ReviewerHandler struct {
	reviewers ReviewerCatalog
	log       zerolog.Logger
}

// NewReviewerHandler creates a new ReviewerHandler.
func NewReviewerHandler(reviewers ReviewerCatalog, log zerolog.Logger) *ReviewerHandler {
	return &ReviewerHandler{
		reviewers: reviewers,
		log:       log.With().Str("component", "reviewer_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/reviewers
func (h *ReviewerHandler) List(c *gin.Context) {
	reviewers, err := h.reviewers.List(c.Request.Context())
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, reviewers)
}

// Get godoc
// GET /api/v1/reviewers/:id
func (h *ReviewerHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	rv, err := h.reviewers.Get(c.Request.Context(), id)
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, rv)
}

// parseUUIDParam reads a UUID path parameter, writing INVALID_ID on failure.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
