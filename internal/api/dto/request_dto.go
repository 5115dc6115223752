package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/worktime"
)

// CreateRequestRequest payload.
type CreateRequestRequest struct {
	ClientID         string           `json:"client_id"`
	CategoryID       string           `json:"category_id"`
	Area             *domain.Area     `json:"area"`
	Description      string           `json:"description"`
	ExtraDescription *string          `json:"extra_description"`
	Cost             *decimal.Decimal `json:"cost"`
}

// UpdateRequestRequest payload. Omitted fields stay unchanged.
type UpdateRequestRequest struct {
	Description      *string          `json:"description"`
	ExtraDescription *string          `json:"extra_description"`
	Cost             *decimal.Decimal `json:"cost"`
	CategoryID       *string          `json:"category_id"`
	AssigneeID       *string          `json:"assignee_id"`
}

// ChangeStateRequest payload.
type ChangeStateRequest struct {
	State string `json:"state"`
}

// TransferRequest payload.
type TransferRequest struct {
	FromUserID string   `json:"from_user_id"`
	RequestIDs []string `json:"request_ids"`
	ToUserIDs  []string `json:"to_user_ids"`
	Reason     string   `json:"reason"`
}

// RequestResponse is the API view of an active request.
type RequestResponse struct {
	ID               string              `json:"id"`
	ClientID         string              `json:"client_id"`
	CategoryID       string              `json:"category_id"`
	Description      string              `json:"description"`
	ExtraDescription *string             `json:"extra_description,omitempty"`
	Cost             decimal.Decimal     `json:"cost"`
	Area             domain.Area         `json:"area"`
	State            domain.RequestState `json:"state"`
	CreatorID        string              `json:"creator_id"`
	AssigneeID       *string             `json:"assignee_id"`
	CreatedAt        time.Time           `json:"created_at"`
	AcceptedAt       *time.Time          `json:"accepted_at,omitempty"`
	ResolvedAt       *time.Time          `json:"resolved_at,omitempty"`
	TimeSpent        worktime.Snapshot   `json:"time_spent"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// NewRequestResponse renders r with its timer evaluated at now.
func NewRequestResponse(r *domain.Request, now time.Time) RequestResponse {
	return RequestResponse{
		ID:               r.ID,
		ClientID:         r.ClientID,
		CategoryID:       r.CategoryID,
		Description:      r.Description,
		ExtraDescription: r.ExtraDescription,
		Cost:             r.Cost,
		Area:             r.Area,
		State:            r.State,
		CreatorID:        r.CreatorID,
		AssigneeID:       r.AssigneeID,
		CreatedAt:        r.CreatedAt,
		AcceptedAt:       r.AcceptedAt,
		ResolvedAt:       r.ResolvedAt,
		TimeSpent:        worktime.Snap(r.WorkedSeconds, r.TimerRunning, r.TimerStartedAt, now),
		UpdatedAt:        r.UpdatedAt,
	}
}

// HistoryResponse is the API view of an archived request.
type HistoryResponse struct {
	ID                string              `json:"id"`
	OriginalRequestID string              `json:"original_request_id"`
	ClientID          string              `json:"client_id"`
	CategoryID        string              `json:"category_id"`
	Description       string              `json:"description"`
	Cost              decimal.Decimal     `json:"cost"`
	Area              domain.Area         `json:"area"`
	State             domain.RequestState `json:"state"`
	CreatorID         string              `json:"creator_id"`
	AssigneeID        *string             `json:"assignee_id"`
	CreatedAt         time.Time           `json:"created_at"`
	AcceptedAt        *time.Time          `json:"accepted_at,omitempty"`
	ResolvedAt        time.Time           `json:"resolved_at"`
	TimeSpent         worktime.Snapshot   `json:"time_spent"`
	ArchivedAt        time.Time           `json:"archived_at"`
}

// NewHistoryResponse renders an archived row.
func NewHistoryResponse(h *domain.RequestHistory) HistoryResponse {
	return HistoryResponse{
		ID:                h.ID,
		OriginalRequestID: h.OriginalRequestID,
		ClientID:          h.ClientID,
		CategoryID:        h.CategoryID,
		Description:       h.Description,
		Cost:              h.Cost,
		Area:              h.Area,
		State:             h.State,
		CreatorID:         h.CreatorID,
		AssigneeID:        h.AssigneeID,
		CreatedAt:         h.CreatedAt,
		AcceptedAt:        h.AcceptedAt,
		ResolvedAt:        h.ResolvedAt,
		TimeSpent:         worktime.Snap(h.WorkedSeconds, false, nil, h.ResolvedAt),
		ArchivedAt:        h.ArchivedAt,
	}
}

// AuditEntryResponse is one audit log row.
type AuditEntryResponse struct {
	ID        string            `json:"id"`
	Kind      domain.ChangeKind `json:"kind"`
	Field     string            `json:"field,omitempty"`
	OldValue  *string           `json:"old_value,omitempty"`
	NewValue  *string           `json:"new_value,omitempty"`
	ActorID   *string           `json:"actor_id"`
	Note      string            `json:"note,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewAuditEntryResponse renders an audit row.
func NewAuditEntryResponse(e *domain.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:        e.ID,
		Kind:      e.Kind,
		Field:     e.Field,
		OldValue:  e.OldValue,
		NewValue:  e.NewValue,
		ActorID:   e.ActorID,
		Note:      e.Note,
		CreatedAt: e.CreatedAt,
	}
}
