package domain

import "time"

// DeliveryReceipt links a ticket to one delivered agent notification. One
// receipt is recorded per agent successfully notified at fan-out time, so the
// claim-resolution pass can later revise every delivered message. Receipts
// are immutable and are not deleted when superseded.
type DeliveryReceipt struct {
	ID         int64
	TicketID   int64
	AgentID    int64
	MessageRef string
	CreatedAt  time.Time
}
