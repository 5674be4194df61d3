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
	"github.com/stemsi/exstem-review/internal/service"
	"github.com/stemsi/exstem-review/internal/validator"
)

// Attempts is the part of service.AttemptService used by the attempt and
// stream handlers.
type Attempts interface {
	Start(ctx context.Context, claims *service.Claims, reviewerID uuid.UUID) (*model.StartAttemptResponse, error)
	Open(ctx context.Context, userID int, attemptID uuid.UUID) error
	SaveAnswer(ctx context.Context, userID int, attemptID uuid.UUID, req model.SaveAnswerRequest) error
	Pause(ctx context.Context, userID int, attemptID uuid.UUID, req model.PauseAttemptRequest) error
	Submit(ctx context.Context, userID int, attemptID uuid.UUID) (*model.Result, error)
	Result(ctx context.Context, userID int, attemptID uuid.UUID) (*model.Result, error)
	Review(ctx context.Context, userID int, attemptID uuid.UUID) (*model.Review, error)
}

// AttemptHandler handles the exam-taking endpoints.
type AttemptHandler struct {
	attempts Attempts
	log      zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts Attempts, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		log:      log.With().Str("component", "attempt_handler").Logger(),
	}
}

// Start godoc
// POST /api/v1/exam/:reviewer_id/start
// Resumes the caller's open attempt on the reviewer or creates a new one
// with a shuffled question order.
func (h *AttemptHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	reviewerID, ok := parseUUIDParam(c, "reviewer_id")
	if !ok {
		return
	}

	out, err := h.attempts.Start(c.Request.Context(), claims, reviewerID)
	if err != nil {
		failFromService(c, h.log, err)
		return
	}

	status := http.StatusCreated
	if out.Resumed {
		status = http.StatusOK
	}
	response.Success(c, status, out)
}

// SaveAnswer godoc
// PUT /api/v1/attempts/:attempt_id/answers
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	claims, attemptID, ok := h.attemptParams(c)
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attempts.SaveAnswer(c.Request.Context(), claims.UserID, attemptID, req); err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"index": req.Index, "choice": req.Choice})
}

// Pause godoc
// POST /api/v1/attempts/:attempt_id/pause
func (h *AttemptHandler) Pause(c *gin.Context) {
	claims, attemptID, ok := h.attemptParams(c)
	if !ok {
		return
	}

	var req model.PauseAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attempts.Pause(c.Request.Context(), claims.UserID, attemptID, req); err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Submit godoc
// POST /api/v1/attempts/:attempt_id/submit
// Grades the attempt. A completed attempt returns its stored result.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims, attemptID, ok := h.attemptParams(c)
	if !ok {
		return
	}

	res, err := h.attempts.Submit(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Result godoc
// GET /api/v1/attempts/:attempt_id/result
func (h *AttemptHandler) Result(c *gin.Context) {
	claims, attemptID, ok := h.attemptParams(c)
	if !ok {
		return
	}

	res, err := h.attempts.Result(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Review godoc
// GET /api/v1/attempts/:attempt_id/review
func (h *AttemptHandler) Review(c *gin.Context) {
	claims, attemptID, ok := h.attemptParams(c)
	if !ok {
		return
	}

	review, err := h.attempts.Review(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, review)
}

func (h *AttemptHandler) attemptParams(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return nil, uuid.Nil, false
	}
	return claims, attemptID, true
}
