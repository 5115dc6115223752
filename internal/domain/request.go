package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/request-desk/internal/worktime"
	"github.com/spec-kit/request-desk/pkg/util"
)

// RequestState enumerates lifecycle states for requests.
type RequestState string

const (
	StatePending    RequestState = "PENDING"
	StateInProgress RequestState = "IN_PROGRESS"
	StatePaused     RequestState = "PAUSED"
	StateResolved   RequestState = "RESOLVED"
	StateCancelled  RequestState = "CANCELLED"
)

// ParseState validates a state string.
func ParseState(s string) (RequestState, bool) {
	switch RequestState(s) {
	case StatePending, StateInProgress, StatePaused, StateResolved, StateCancelled:
		return RequestState(s), true
	default:
		return "", false
	}
}

// IsTerminal reports whether no further transitions are allowed.
func (s RequestState) IsTerminal() bool {
	return s == StateResolved || s == StateCancelled
}

// Pending may be resolved or cancelled without ever being accepted; in that
// case AcceptedAt and AssigneeID stay nil on the archived row.
var allowedTransitions = map[RequestState][]RequestState{
	StatePending:    {StateResolved, StateCancelled},
	StateInProgress: {StatePaused, StateResolved, StateCancelled},
	StatePaused:     {StateInProgress, StateResolved, StateCancelled},
	StateResolved:   {},
	StateCancelled:  {},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to RequestState) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Request is the aggregate for a client service request while it is active.
type Request struct {
	ID               string
	ClientID         string
	CategoryID       string
	Description      string
	ExtraDescription *string
	Cost             decimal.Decimal
	Area             Area
	State            RequestState
	CreatorID        string
	AssigneeID       *string
	CreatedAt        time.Time
	AcceptedAt       *time.Time
	ResolvedAt       *time.Time
	WorkedSeconds    int64
	TimerRunning     bool
	TimerStartedAt   *time.Time
	TimerPausedAt    *time.Time
	UpdatedAt        time.Time
}

// IsTerminal reports whether the request reached Resolved or Cancelled.
func (r *Request) IsTerminal() bool {
	return r.State.IsTerminal()
}

// IsAssignee reports whether userID currently owns the request.
func (r *Request) IsAssignee(userID string) bool {
	return r.AssigneeID != nil && *r.AssigneeID == userID
}

// OwnerIDs returns creator and assignee ids.
func (r *Request) OwnerIDs() []string {
	ids := []string{r.CreatorID}
	if r.AssigneeID != nil && *r.AssigneeID != r.CreatorID {
		ids = append(ids, *r.AssigneeID)
	}
	return ids
}

// TimeSpent projects the timer at now.
func (r *Request) TimeSpent(now time.Time) worktime.Snapshot {
	return worktime.Snap(r.WorkedSeconds, r.TimerRunning, r.TimerStartedAt, now)
}

func (r *Request) startTimer(now time.Time) {
	t := now
	r.TimerRunning = true
	r.TimerStartedAt = &t
}

// stopTimer flushes the running interval into WorkedSeconds.
func (r *Request) stopTimer(now time.Time) {
	r.WorkedSeconds = worktime.Elapsed(r.WorkedSeconds, r.TimerRunning, r.TimerStartedAt, now)
	r.TimerRunning = false
	r.TimerStartedAt = nil
}

// Accept assigns the request to userID and starts a fresh timer.
func (r *Request) Accept(userID string, now time.Time) error {
	if r.State != StatePending {
		return util.NewValidationError("only pending requests can be accepted", map[string]any{
			"request_id": r.ID,
			"state":      r.State,
		})
	}
	t := now
	assignee := userID
	r.State = StateInProgress
	r.AssigneeID = &assignee
	r.AcceptedAt = &t
	r.WorkedSeconds = 0
	r.startTimer(now)
	return nil
}

// Pause flushes the timer and parks the request.
func (r *Request) Pause(now time.Time) error {
	if r.State != StateInProgress || !r.TimerRunning {
		return util.NewValidationError("request timer is not running", map[string]any{
			"request_id": r.ID,
			"state":      r.State,
		})
	}
	r.stopTimer(now)
	t := now
	r.State = StatePaused
	r.TimerPausedAt = &t
	return nil
}

// Resume restarts the timer of a paused request.
func (r *Request) Resume(now time.Time) error {
	if r.State != StatePaused || r.TimerRunning {
		return util.NewValidationError("request is not paused", map[string]any{
			"request_id": r.ID,
			"state":      r.State,
		})
	}
	r.State = StateInProgress
	r.startTimer(now)
	return nil
}

// TransitionTo moves the request to next and applies the timer side effects
// of the target state. Pending requests only leave the queue through Accept,
// Reassign or a terminal state.
func (r *Request) TransitionTo(next RequestState, now time.Time) error {
	if r.IsTerminal() {
		return util.NewValidationError("request is already closed", map[string]any{
			"request_id": r.ID,
			"state":      r.State,
		})
	}
	if next == r.State || !CanTransition(r.State, next) {
		return util.NewValidationError("invalid state transition", map[string]any{
			"from": r.State,
			"to":   next,
		})
	}

	switch next {
	case StateInProgress:
		r.State = StateInProgress
		r.startTimer(now)
	case StatePaused:
		r.stopTimer(now)
		t := now
		r.State = StatePaused
		r.TimerPausedAt = &t
	case StateResolved, StateCancelled:
		r.stopTimer(now)
		t := now
		r.State = next
		r.ResolvedAt = &t
	}
	return nil
}

// Reassign hands the request to userID. A pending request is accepted on the
// new owner's behalf. Otherwise a running timer is flushed and the request
// parks in Paused so the new owner resumes it explicitly.
func (r *Request) Reassign(userID string, now time.Time) error {
	if r.IsTerminal() {
		return util.NewValidationError("closed requests cannot be reassigned", map[string]any{
			"request_id": r.ID,
		})
	}
	if r.State == StatePending {
		return r.Accept(userID, now)
	}
	if r.TimerRunning {
		r.stopTimer(now)
		t := now
		r.TimerPausedAt = &t
		r.State = StatePaused
	}
	assignee := userID
	r.AssigneeID = &assignee
	if r.AcceptedAt == nil {
		t := now
		r.AcceptedAt = &t
	}
	return nil
}

// ToHistory snapshots a terminal request. ResolvedAt is stamped when missing.
func (r *Request) ToHistory(now time.Time) RequestHistory {
	resolvedAt := now
	if r.ResolvedAt != nil {
		resolvedAt = *r.ResolvedAt
	}
	return RequestHistory{
		OriginalRequestID: r.ID,
		ClientID:          r.ClientID,
		CategoryID:        r.CategoryID,
		Description:       r.Description,
		ExtraDescription:  r.ExtraDescription,
		Cost:              r.Cost,
		Area:              r.Area,
		State:             r.State,
		CreatorID:         r.CreatorID,
		AssigneeID:        r.AssigneeID,
		CreatedAt:         r.CreatedAt,
		AcceptedAt:        r.AcceptedAt,
		ResolvedAt:        resolvedAt,
		WorkedSeconds:     worktime.Elapsed(r.WorkedSeconds, r.TimerRunning, r.TimerStartedAt, resolvedAt),
		ArchivedAt:        now,
	}
}

// RequestHistory is the immutable snapshot of an archived request.
type RequestHistory struct {
	ID                string
	OriginalRequestID string
	ClientID          string
	CategoryID        string
	Description       string
	ExtraDescription  *string
	Cost              decimal.Decimal
	Area              Area
	State             RequestState
	CreatorID         string
	AssigneeID        *string
	CreatedAt         time.Time
	AcceptedAt        *time.Time
	ResolvedAt        time.Time
	WorkedSeconds     int64
	ArchivedAt        time.Time
}

// ResolutionHours is the time between acceptance and resolution. ok is false
// when the request was never accepted.
func (h *RequestHistory) ResolutionHours() (float64, bool) {
	if h.AcceptedAt == nil {
		return 0, false
	}
	d := h.ResolvedAt.Sub(*h.AcceptedAt)
	if d < 0 {
		d = 0
	}
	return d.Hours(), true
}
