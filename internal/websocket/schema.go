package websocket

import "github.com/chhs/grades-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is the only client message shape; the stream is read-mostly.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError        Event = "error"
	EventSubscribed   Event = "subscribed"
	EventGradeChanged Event = "grade_changed"
	EventPong         Event = "pong"
)

// SubscribedResponse confirms the stream is live and which rows it covers.
type SubscribedResponse struct {
	Event Event      `json:"event"`
	Role  model.Role `json:"role"`
	Scope string     `json:"scope"`
}

// GradeChangedResponse tells a dashboard to refresh one record.
type GradeChangedResponse struct {
	Event Event                   `json:"event"`
	Data  model.GradeChangedEvent `json:"data"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
