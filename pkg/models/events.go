package models

import "github.com/google/uuid"

// EventType names one of the WebSocket/audit events the ledger and escrow
// components emit. Kept as plain strings, matching the teacher's own
// untyped event-name convention in its websocket Hub.
type EventType string

const (
	EventProposalSubmitted EventType = "ProposalSubmitted"
	EventSlotFinalized     EventType = "SlotFinalized"
	EventEscrowCreated     EventType = "EscrowCreated"
	EventPickedUp          EventType = "PickedUp"
	EventDelivered         EventType = "Delivered"
	EventReceiverConfirmed EventType = "ReceiverConfirmed"
	EventPaymentReleased   EventType = "PaymentReleased"
)

// Event is the envelope broadcast over the WebSocket hub and written to the
// audit log; Payload is one of the *Payload structs below.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

type ProposalSubmittedPayload struct {
	Slot       uint64 `json:"slot"`
	TotalScore int64  `json:"total_score"`
	MatchesLen int    `json:"matches_len"`
	Proposer   string `json:"proposer"`
}

type SlotFinalizedPayload struct {
	Slot       uint64 `json:"slot"`
	TotalScore int64  `json:"total_score"`
	MatchesLen int    `json:"matches_len"`
}

type EscrowCreatedPayload struct {
	EscrowID    uint64    `json:"escrow_id"`
	RequestUUID uuid.UUID `json:"request_uuid"`
	OfferUUID   uuid.UUID `json:"offer_uuid"`
	Driver      string    `json:"driver"`
	Payer       string    `json:"payer"`
	Amount      uint64    `json:"amount"`
	DeadlineUTC string    `json:"deadline_utc"`
}

type EscrowIDPayload struct {
	EscrowID uint64 `json:"escrow_id"`
}

type PaymentReleasedPayload struct {
	EscrowID uint64 `json:"escrow_id"`
	Amount   uint64 `json:"amount"`
}
