package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusUnclaimed TicketStatus = "UNCLAIMED"
	TicketStatusClaimed   TicketStatus = "CLAIMED"
	TicketStatusEscalated TicketStatus = "ESCALATED"
	TicketStatusClosed    TicketStatus = "CLOSED"
)

// Ticket is the aggregate for a single inbound support request. ClaimedBy is
// the external identity of the winning agent; it is set exactly once, at the
// unclaimed/escalated -> claimed transition, and never cleared.
type Ticket struct {
	ID        int64
	UserID    string
	Status    TicketStatus
	ClaimedBy *int64
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Unresolved reports whether the ticket still needs attention. Escalated
// tickets are advisory-severity and count as unresolved alongside unclaimed
// and claimed ones.
func (t *Ticket) Unresolved() bool {
	return t.Status != TicketStatusClosed
}

// ClaimableStatuses are the states a claim attempt may move from. A late
// claim on an escalated ticket is legal.
func ClaimableStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusUnclaimed, TicketStatusEscalated}
}

// OpenStatuses are the states an owner close may move from.
func OpenStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusUnclaimed, TicketStatusClaimed, TicketStatusEscalated}
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusUnclaimed: {TicketStatusClaimed, TicketStatusEscalated, TicketStatusClosed},
	TicketStatusEscalated: {TicketStatusClaimed, TicketStatusClosed},
	TicketStatusClaimed:   {TicketStatusClosed},
	TicketStatusClosed:    {},
}

// IsValidTransition reports whether moving from current to next is legal.
// Transitions are monotonic along unclaimed -> {claimed|escalated} -> closed;
// closed is terminal.
func IsValidTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
