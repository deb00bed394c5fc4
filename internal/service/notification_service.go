package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/club-kit/credit-service/internal/events"
)

// EventSink receives events that should leave the process.
type EventSink interface {
	Enqueue(event events.Event) bool
}

// NotificationService logs domain events and hands them to an outbound sink.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	sink       EventSink
}

// NewNotificationService creates the service. sink may be nil.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, sink EventSink) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		sink:       sink,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventCreditAdjusted, n.handleCreditAdjusted)
	n.dispatcher.Subscribe(events.EventStatusChanged, n.handleStatusChanged)
	for _, t := range []events.EventType{
		events.EventSettingsChanged,
		events.EventMemberApproved,
		events.EventMemberRejected,
		events.EventRecoveryRequested,
		events.EventRecoveryReviewed,
	} {
		n.dispatcher.Subscribe(t, n.handleGeneric)
	}
}

func (n *NotificationService) handleCreditAdjusted(_ context.Context, event events.Event) error {
	n.logger.Debug("CreditAdjusted", zap.String("user_id", event.UserID), zap.String("actor", event.Actor), zap.Any("payload", event.Payload))
	n.forward(event)
	return nil
}

func (n *NotificationService) handleStatusChanged(_ context.Context, event events.Event) error {
	if p, ok := event.Payload.(events.StatusChangedPayload); ok {
		n.logger.Info("StatusChanged",
			zap.String("user_id", event.UserID),
			zap.String("from", string(p.OldStatus)),
			zap.String("to", string(p.NewStatus)),
			zap.String("cause", p.Cause),
		)
	}
	n.forward(event)
	return nil
}

func (n *NotificationService) handleGeneric(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("user_id", event.UserID), zap.String("actor", event.Actor))
	n.forward(event)
	return nil
}

func (n *NotificationService) forward(event events.Event) {
	if n.sink == nil {
		return
	}
	n.sink.Enqueue(event)
}
