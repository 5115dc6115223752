package events

import (
	"time"

	"github.com/spec-kit/request-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestAssigned      EventType = "request_assigned"
	EventRequestBroadcast     EventType = "request_broadcast"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventRequestsTransferred  EventType = "requests_transferred"
)

// Actor encapsulates actor metadata for an event. UserID is nil for jobs.
type Actor struct {
	UserID *string     `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services. Recipients are the
// users who should be told about it.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	RequestID  string      `json:"request_id,omitempty"`
	Actor      Actor       `json:"actor"`
	Recipients []string    `json:"-"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// RequestSummary is the request excerpt carried by request events.
type RequestSummary struct {
	ID          string              `json:"id"`
	ClientID    string              `json:"client_id"`
	Area        domain.Area         `json:"area"`
	State       domain.RequestState `json:"state"`
	Description string              `json:"description"`
	AssigneeID  *string             `json:"assignee_id,omitempty"`
}

// RequestAssignedPayload payload.
type RequestAssignedPayload struct {
	Request    RequestSummary `json:"request"`
	AssigneeID string         `json:"assignee_id"`
}

// RequestBroadcastPayload payload.
type RequestBroadcastPayload struct {
	Request RequestSummary `json:"request"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	Request  RequestSummary      `json:"request"`
	OldState domain.RequestState `json:"old_state"`
	NewState domain.RequestState `json:"new_state"`
}

// RequestsTransferredPayload payload. MovedTo maps destination user to the
// request ids it received.
type RequestsTransferredPayload struct {
	FromUserID string              `json:"from_user_id"`
	MovedTo    map[string][]string `json:"moved_to"`
	Reason     string              `json:"reason,omitempty"`
}

// Summarize builds the event excerpt of req.
func Summarize(req *domain.Request) RequestSummary {
	return RequestSummary{
		ID:          req.ID,
		ClientID:    req.ClientID,
		Area:        req.Area,
		State:       req.State,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
	}
}
