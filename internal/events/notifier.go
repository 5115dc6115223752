package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/domain"
)

// Notifier turns service notifications into dispatcher events. Delivery
// failures are logged, never returned.
type Notifier struct {
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewNotifier builds a Notifier publishing on dispatcher.
func NewNotifier(dispatcher Dispatcher, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{dispatcher: dispatcher, logger: logger, now: time.Now}
}

func (n *Notifier) NotifyAssignment(ctx context.Context, req *domain.Request, assigneeID string, actor domain.Actor) {
	n.publish(ctx, Event{
		Type:       EventRequestAssigned,
		RequestID:  req.ID,
		Actor:      actorOf(actor),
		Recipients: []string{assigneeID},
		Payload:    RequestAssignedPayload{Request: Summarize(req), AssigneeID: assigneeID},
	})
}

func (n *Notifier) NotifyBroadcast(ctx context.Context, req *domain.Request, recipientIDs []string) {
	n.publish(ctx, Event{
		Type:       EventRequestBroadcast,
		RequestID:  req.ID,
		Recipients: recipientIDs,
		Payload:    RequestBroadcastPayload{Request: Summarize(req)},
	})
}

func (n *Notifier) NotifyStatusChange(ctx context.Context, req *domain.Request, from domain.RequestState, recipientIDs []string, actor domain.Actor) {
	n.publish(ctx, Event{
		Type:       EventRequestStatusChanged,
		RequestID:  req.ID,
		Actor:      actorOf(actor),
		Recipients: recipientIDs,
		Payload: RequestStatusChangedPayload{
			Request:  Summarize(req),
			OldState: from,
			NewState: req.State,
		},
	})
}

// NotifyTransfer sends one aggregate event to the origin user and every
// destination.
func (n *Notifier) NotifyTransfer(ctx context.Context, fromUserID string, movedTo map[string][]string, reason string, actor domain.Actor) {
	recipients := make([]string, 0, len(movedTo)+1)
	recipients = append(recipients, fromUserID)
	for userID := range movedTo {
		recipients = append(recipients, userID)
	}
	n.publish(ctx, Event{
		Type:       EventRequestsTransferred,
		Actor:      actorOf(actor),
		Recipients: recipients,
		Payload: RequestsTransferredPayload{
			FromUserID: fromUserID,
			MovedTo:    movedTo,
			Reason:     reason,
		},
	})
}

func (n *Notifier) publish(ctx context.Context, event Event) {
	if n.dispatcher == nil || len(event.Recipients) == 0 {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = n.now().UTC()
	if err := n.dispatcher.Publish(ctx, event); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("request_id", event.RequestID),
			zap.Error(err))
	}
}

func actorOf(actor domain.Actor) Actor {
	return Actor{UserID: actor.ActorID(), Role: actor.Role}
}
