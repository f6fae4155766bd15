package mq

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Routing keys of the lifecycle events.
const (
	EventComplaintCreated    = "complaint.created"
	EventComplaintDuplicated = "complaint.duplicated"
	EventJobSubmitted        = "job.submitted"
	EventJobApproved         = "job.approved"
)

// Event is the JSON body published for every lifecycle change.
type Event struct {
	Event       string    `json:"event"`
	ComplaintID string    `json:"complaintId"`
	JobID       string    `json:"jobId,omitempty"`
	SuccessorID string    `json:"successorId,omitempty"`
	Status      string    `json:"status,omitempty"`
	TenantID    string    `json:"tenantId,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// DecodeEvent parses a delivery body.
func DecodeEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, errors.Wrap(err, "decode event")
	}
	if ev.Event == "" {
		return Event{}, errors.New("event name missing")
	}
	return ev, nil
}
