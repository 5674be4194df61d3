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

// SupportDesk is the part of service.SupportService used by SupportHandler.
type SupportDesk interface {
	Submit(ctx context.Context, userID int, req model.CreateTicketRequest) (*model.SupportTicket, error)
}

// SupportHandler files support tickets.
type SupportHandler struct {
	support SupportDesk
	log     zerolog.Logger
}

// NewSupportHandler creates a new SupportHandler.
func NewSupportHandler(support SupportDesk, log zerolog.Logger) *SupportHandler {
	return &SupportHandler{
		support: support,
		log:     log.With().Str("component", "support_handler").Logger(),
	}
}

// Create godoc
// POST /api/v1/support/tickets
func (h *SupportHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateTicketRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ticket, err := h.support.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, ticket)
}
