package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// WriteTimeout bounds a single frame write.
	WriteTimeout = 10 * time.Second
	// ReadTimeout closes an idle stream; clients ping well within it.
	ReadTimeout = 5 * time.Minute
)

// WriteTyped sends a strongly-typed payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(ReadTimeout))
	return conn.ReadJSON(v)
}

// ReadWithin reads one message with a caller-chosen deadline.
func ReadWithin(conn *websocket.Conn, d time.Duration, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(d))
	return conn.ReadJSON(v)
}
