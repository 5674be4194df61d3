package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-review/internal/middleware"
	"github.com/stemsi/exstem-review/internal/model"
	"github.com/stemsi/exstem-review/internal/response"
	ws "github.com/stemsi/exstem-review/internal/websocket"
)

// streamOpTimeout bounds each autosave or submit handled on the stream.
const streamOpTimeout = 15 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no Origin.
				return true
			}
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams autosave and submit for one attempt.
type WSHandler struct {
	attempts Attempts
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attempts Attempts, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attempt_id/stream?token=...
// Upgrades to WebSocket for autosave and grading of an open attempt.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	// Refuse before upgrading so the client sees a real HTTP status.
	if err := h.attempts.Open(c.Request.Context(), claims.UserID, attemptID); err != nil {
		failFromService(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("attempt_id", attemptID.String()).
		Logger()
	wsLog.Info().Msg("Stream connected")

	for {
		var raw json.RawMessage
		if err := ws.ReadJSON(conn, &raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			ws.WriteError(conn, "malformed frame")
			continue
		}

		switch env.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, wsLog, claims.UserID, attemptID, raw)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, claims.UserID, attemptID)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(env.Action))
		}
	}
}

// handleAutosave saves one answer through the attempt service.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, wsLog zerolog.Logger, userID int, attemptID uuid.UUID, raw json.RawMessage) {
	var msg ws.AutosaveRequest
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Choice == "" {
		ws.WriteError(conn, "index and choice are required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), streamOpTimeout)
	defer cancel()

	req := model.SaveAnswerRequest{Index: msg.Index, Choice: msg.Choice}
	if err := h.attempts.SaveAnswer(ctx, userID, attemptID, req); err != nil {
		h.writeServiceError(conn, wsLog, err)
		return
	}

	ws.WriteTyped(conn, ws.AutosaveResponse{Event: ws.EventSuccess, Status: "saved", Index: msg.Index})
}

// handleSubmit grades the attempt and replies with the score.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, userID int, attemptID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), streamOpTimeout)
	defer cancel()

	res, err := h.attempts.Submit(ctx, userID, attemptID)
	if err != nil {
		h.writeServiceError(conn, wsLog, err)
		return
	}

	wsLog.Info().
		Float64("score", res.Score).
		Int("correct", res.CorrectCount).
		Int("total", res.TotalQuestions).
		Msg("Attempt graded over stream")

	ws.WriteTyped(conn, ws.GradedResponse{
		Event:        ws.EventGraded,
		Status:       "graded",
		Score:        res.Score,
		CorrectCount: res.CorrectCount,
		Total:        res.TotalQuestions,
	})
}

func (h *WSHandler) writeServiceError(conn *websocket.Conn, wsLog zerolog.Logger, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		wsLog.Error().Err(err).Msg("Stream request failed")
	}
	var msg string
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	} else {
		msg = response.GetMessage(code)
	}
	ws.WriteError(conn, msg)
}
