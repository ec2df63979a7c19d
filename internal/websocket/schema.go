package websocket

import "encoding/json"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action of a client frame.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventReady    Event = "ready"
	EventMovement Event = "movement"
	EventPong     Event = "pong"
	EventPing     Event = "ping"
	EventError    Event = "error"
)

// ReadyResponse is sent once the subscription is live.
type ReadyResponse struct {
	Event Event `json:"event"`
}

// MovementResponse relays a tool movement. Data is the published JSON as is.
type MovementResponse struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
