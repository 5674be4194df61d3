// Package websocket holds the frame schema of the attempt stream shared by
// the gateway server handler and the exam client.
package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest saves the choice for one question of the attempt.
type AutosaveRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
	Choice string `json:"choice"`
}

// SubmitRequest finishes and grades the attempt.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// PingRequest keeps the stream alive.
type PingRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventSuccess Event = "success"
	EventGraded  Event = "graded"
	EventPong    Event = "pong"
)

// EventEnvelope is used to peek at the event before full parsing.
type EventEnvelope struct {
	Event Event `json:"event"`
}

type AutosaveResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
	Index  int    `json:"index"`
}

type GradedResponse struct {
	Event        Event   `json:"event"`
	Status       string  `json:"status"`
	Score        float64 `json:"score"`
	CorrectCount int     `json:"correct_count"`
	Total        int     `json:"total_questions"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
