package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/streetcats/report-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReportCreated  EventType = "report_created"
	EventReportClaimed  EventType = "report_claimed"
	EventReportResolved EventType = "report_resolved"
)

// Actor identifies who triggered an event. UserID is nil for guests.
type Actor struct {
	UserID *string `json:"user_id,omitempty"`
	Name   string  `json:"name"`
}

// ActorFrom builds an actor from an optional identity.
func ActorFrom(identity *domain.Identity) Actor {
	if identity == nil {
		return Actor{Name: domain.GuestName}
	}
	id := identity.ID
	return Actor{UserID: &id, Name: identity.DisplayName()}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ReportID  string      `json:"report_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, reportID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ReportID:  reportID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// ReportCreatedPayload payload.
type ReportCreatedPayload struct {
	Type       domain.ReportType `json:"type"`
	Lat        float64           `json:"lat"`
	Lng        float64           `json:"lng"`
	MediaCount int               `json:"media_count"`
}

// ReportTransitionPayload is shared by claim and resolve.
type ReportTransitionPayload struct {
	OldStatus domain.ReportStatus `json:"old_status"`
	NewStatus domain.ReportStatus `json:"new_status"`
	Assignee  string              `json:"assignee,omitempty"`
}
