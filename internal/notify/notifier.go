// Package notify hands requisition lifecycle events to the outbound
// notification collaborator. Delivery itself (email, SMS) happens elsewhere;
// this package only publishes, asynchronously and off the request path.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	EventRequisitionCreated  = "requisition.created"
	EventRequisitionReopened = "requisition.reopened"
	EventTemplatePublished   = "template.published"
)

// EventForStatus names the event emitted when a requisition enters status.
func EventForStatus(status string) string {
	return "requisition." + status
}

type Event struct {
	Type          string    `json:"type"`
	RequisitionID string    `json:"requisition_id,omitempty"`
	TemplateID    string    `json:"template_id,omitempty"`
	CompanyID     string    `json:"company_id"`
	ActorID       string    `json:"actor_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notifier is what the core calls. Implementations must not block the caller
// on delivery and must not report delivery failures back.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Sink performs the actual publish for the Dispatcher.
type Sink interface {
	Name() string
	Publish(ctx context.Context, event Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

// LogSink writes events to the logger. Used when no broker is configured.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Name() string { return "log" }

func (s LogSink) Publish(_ context.Context, event Event) error {
	s.Logger.Info("requisition event",
		zap.String("type", event.Type),
		zap.String("requisition_id", event.RequisitionID),
		zap.String("template_id", event.TemplateID),
		zap.String("company_id", event.CompanyID),
		zap.String("actor_id", event.ActorID),
	)
	return nil
}
