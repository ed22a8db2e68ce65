package events

import (
	"time"

	"github.com/spec-kit/support-router/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketSubmitted EventType = "ticket_submitted"
	EventTicketClaimed   EventType = "ticket_claimed"
	EventTicketEscalated EventType = "ticket_escalated"
	EventTicketClosed    EventType = "ticket_closed"
	EventTicketRated     EventType = "ticket_rated"
	EventTicketReplied   EventType = "ticket_replied"
)

// AllTypes lists every event type, for handlers that mirror the full stream.
func AllTypes() []EventType {
	return []EventType{
		EventTicketSubmitted,
		EventTicketClaimed,
		EventTicketEscalated,
		EventTicketClosed,
		EventTicketRated,
		EventTicketReplied,
	}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	UserExternalID int64  `json:"user_external_id"`
	ContentPreview string `json:"content_preview"`
	AgentsNotified int    `json:"agents_notified"`
	AgentsFailed   int    `json:"agents_failed"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	AgentExternalID int64 `json:"agent_external_id"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	UnclaimedFor time.Duration `json:"unclaimed_for"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	FromStatus domain.TicketStatus `json:"from_status"`
}

// TicketRatedPayload payload.
type TicketRatedPayload struct {
	Score int `json:"score"`
}

// TicketRepliedPayload payload.
type TicketRepliedPayload struct {
	AgentExternalID int64  `json:"agent_external_id"`
	BodyPreview     string `json:"body_preview"`
}
