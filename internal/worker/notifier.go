package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/example/maintdesk/backend/internal/auth"
	"github.com/example/maintdesk/backend/internal/mq"
)

// Notification is a message addressed to a role, or to one tenant when
// TenantID is set.
type Notification struct {
	Audience    auth.Role
	TenantID    string
	ComplaintID string
	Text        string
}

// Sink delivers notifications to people.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// LogSink writes notifications to the process log.
type LogSink struct{}

func (LogSink) Deliver(_ context.Context, n Notification) error {
	to := string(n.Audience)
	if n.TenantID != "" {
		to += ":" + n.TenantID
	}
	log.Printf("notify %s: %s", to, n.Text)
	return nil
}

// Notifier consumes lifecycle events and fans them out as notifications.
type Notifier struct {
	id       string
	consumer mq.Consumer
	sink     Sink
}

// NewNotifier creates the worker with a random identifier.
func NewNotifier(consumer mq.Consumer, sink Sink) *Notifier {
	return &Notifier{id: uuid.New().String(), consumer: consumer, sink: sink}
}

// Run consumes until ctx is cancelled and should be launched in its own goroutine.
func (n *Notifier) Run(ctx context.Context) error {
	err := n.consumer.Consume(func(d amqp091.Delivery) {
		if err := n.Handle(ctx, d.Body); err != nil {
			log.Printf("notifier %s: %s dropped: %v", n.id, d.RoutingKey, err)
			_ = d.Nack(false, false)
			return
		}
		_ = d.Ack(false)
	})
	if err != nil {
		return errors.Wrap(err, "start consumer")
	}
	<-ctx.Done()
	log.Println("notifier shutting down")
	return nil
}

// Handle decodes one event body and delivers the notifications it produces.
func (n *Notifier) Handle(ctx context.Context, body []byte) error {
	ev, err := mq.DecodeEvent(body)
	if err != nil {
		return err
	}
	for _, note := range Notifications(ev) {
		if err := n.sink.Deliver(ctx, note); err != nil {
			return errors.Wrapf(err, "deliver %s", ev.Event)
		}
	}
	return nil
}

// Notifications maps an event to the people who should hear about it.
// Unknown events produce nothing.
func Notifications(ev mq.Event) []Notification {
	var out []Notification
	tenant := func(text string) {
		if ev.TenantID != "" {
			out = append(out, Notification{Audience: auth.RoleTenant, TenantID: ev.TenantID, ComplaintID: ev.ComplaintID, Text: text})
		}
	}
	switch ev.Event {
	case mq.EventComplaintCreated:
		out = append(out, Notification{Audience: auth.RoleAdmin, ComplaintID: ev.ComplaintID,
			Text: fmt.Sprintf("new complaint %s registered", ev.ComplaintID)})
		tenant(fmt.Sprintf("complaint %s received", ev.ComplaintID))
	case mq.EventJobSubmitted:
		tenant(fmt.Sprintf("complaint %s is now %s", ev.ComplaintID, ev.Status))
		out = append(out, Notification{Audience: auth.RoleSupervisor, ComplaintID: ev.ComplaintID,
			Text: fmt.Sprintf("job %s on complaint %s awaits approval", ev.JobID, ev.ComplaintID)})
	case mq.EventComplaintDuplicated:
		tenant(fmt.Sprintf("complaint %s was re-opened as %s", ev.ComplaintID, ev.SuccessorID))
		out = append(out, Notification{Audience: auth.RoleAdmin, ComplaintID: ev.SuccessorID,
			Text: fmt.Sprintf("follow-up complaint %s needs scheduling", ev.SuccessorID)})
	case mq.EventJobApproved:
		out = append(out, Notification{Audience: auth.RoleAdmin, ComplaintID: ev.ComplaintID,
			Text: fmt.Sprintf("job %s approved", ev.JobID)})
	}
	return out
}
