package dto

import (
	"time"

	"github.com/spec-kit/support-router/internal/domain"
)

// InboundMessageRequest is one user message relayed by the chat gateway.
type InboundMessageRequest struct {
	ExternalID  int64  `json:"external_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
	Photo       bool   `json:"photo"`
	DocumentID  string `json:"document_id"`
}

// TokenRequest asks for an API token for an identity the gateway vouches for.
type TokenRequest struct {
	ExternalID int64 `json:"external_id"`
}

// TokenResponse carries the signed token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ClaimResponse reports a claim attempt outcome.
type ClaimResponse struct {
	TicketID int64  `json:"ticket_id"`
	Result   string `json:"result"`
	Message  string `json:"message,omitempty"`
}

// ReplyRequest carries an agent reply for the ticket's user.
type ReplyRequest struct {
	Text string `json:"text"`
}

// RateRequest carries end-user feedback.
type RateRequest struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// LanguageRequest sets the caller's language preference.
type LanguageRequest struct {
	Language string `json:"language"`
}

// AgentsRequest names identities for role changes.
type AgentsRequest struct {
	ExternalIDs []int64 `json:"external_ids"`
}

// TicketSummary response.
type TicketSummary struct {
	ID             int64               `json:"id"`
	Status         domain.TicketStatus `json:"status"`
	ClaimedBy      *int64              `json:"claimed_by,omitempty"`
	ContentPreview string              `json:"content_preview"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// AgentStatRow is one line of the owner stats report.
type AgentStatRow struct {
	AgentExternalID int64  `json:"agent_external_id"`
	DisplayName     string `json:"display_name,omitempty"`
	Claimed         int64  `json:"claimed"`
}

// DashboardResponse summarizes ticket volume.
type DashboardResponse struct {
	Claimed int64 `json:"claimed"`
	Total   int64 `json:"total"`
}
