package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stemsi/exstem-review/internal/model"
	ws "github.com/stemsi/exstem-review/internal/websocket"
)

const streamReplyTimeout = 10 * time.Second

// Stream is an open attempt websocket. Requests are serialized: each write
// waits for its reply.
type Stream struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Dial opens the attempt stream at /ws/v1/attempts/:id/stream.
func (c *Client) Dial(ctx context.Context, attemptID string) (*Stream, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}
	target, err := streamURL(c.baseURL, attemptID, token)
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial stream: HTTP %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial stream: %w", err)
	}
	return &Stream{conn: conn}, nil
}

// streamURL turns http(s)://host/api/v1 into ws(s)://host/ws/v1/attempts/:id/stream.
func streamURL(baseURL, attemptID, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	prefix := strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/api/v1")
	u.Path = prefix + "/ws/v1/attempts/" + attemptID + "/stream"
	q := url.Values{}
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Autosave saves one answer and waits for the acknowledgement.
func (s *Stream) Autosave(ctx context.Context, index int, choice model.Choice) error {
	var ack ws.AutosaveResponse
	err := s.roundTrip(ctx, ws.AutosaveRequest{Action: ws.ActionAutosave, Index: index, Choice: string(choice)}, ws.EventSuccess, &ack)
	if err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	return nil
}

// Submit grades the attempt over the stream.
func (s *Stream) Submit(ctx context.Context) (*ws.GradedResponse, error) {
	var graded ws.GradedResponse
	if err := s.roundTrip(ctx, ws.SubmitRequest{Action: ws.ActionSubmit}, ws.EventGraded, &graded); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	return &graded, nil
}

// Ping checks that the stream is alive.
func (s *Stream) Ping(ctx context.Context) error {
	var pong ws.PongResponse
	return s.roundTrip(ctx, ws.PingRequest{Action: ws.ActionPing}, ws.EventPong, &pong)
}

// Close sends a close frame and closes the connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return s.conn.Close()
}

func (s *Stream) roundTrip(ctx context.Context, req interface{}, want ws.Event, out interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ws.WriteTyped(s.conn, req); err != nil {
		return err
	}

	wait := streamReplyTimeout
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
	}

	var raw rawEvent
	if err := ws.ReadWithin(s.conn, wait, &raw); err != nil {
		return err
	}
	switch raw.Event {
	case want:
		return raw.decode(out)
	case ws.EventError:
		var e ws.ErrorResponse
		if err := raw.decode(&e); err != nil {
			return err
		}
		return errors.New(e.Error)
	default:
		return fmt.Errorf("unexpected event %q", raw.Event)
	}
}

// rawEvent keeps the frame bytes so the body can be decoded once the event is known.
type rawEvent struct {
	Event ws.Event
	body  json.RawMessage
}

func (r *rawEvent) UnmarshalJSON(b []byte) error {
	var env ws.EventEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	r.Event = env.Event
	r.body = append(r.body[:0], b...)
	return nil
}

func (r *rawEvent) decode(v interface{}) error {
	return json.Unmarshal(r.body, v)
}
