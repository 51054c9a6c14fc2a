package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the tagged state of an AssignmentEscrow. It is a plain
// string-backed enum rather than an interface hierarchy: every transition is
// a total function from (status, op) to (status', error), so there is no
// need for per-state dispatch objects.
type DeliveryStatus string

const (
	StatusCreated            DeliveryStatus = "Created"
	StatusPickedUpByCourier  DeliveryStatus = "PickedUpByCourier"
	StatusDeliveredByCourier DeliveryStatus = "DeliveredByCourier"
	StatusConfirmedByReceiver DeliveryStatus = "ConfirmedByReceiver"
	StatusTimeoutReleased    DeliveryStatus = "TimeoutReleased"
	StatusCancelled          DeliveryStatus = "Cancelled"
	StatusFailed             DeliveryStatus = "Failed"
)

// IsTerminal reports whether no further transition can leave this status.
func (s DeliveryStatus) IsTerminal() bool {
	switch s {
	case StatusConfirmedByReceiver, StatusTimeoutReleased, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// AssignmentEscrow is the ledger record governing payment release for one
// finalized (request, offer) match.
type AssignmentEscrow struct {
	EscrowID    uint64         `json:"escrow_id"`
	RequestUUID uuid.UUID      `json:"request_uuid"`
	OfferUUID   uuid.UUID      `json:"offer_uuid"`
	Driver      string         `json:"driver"`
	Payer       string         `json:"payer"`
	Amount      uint64         `json:"amount"`
	Status      DeliveryStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	Deadline    time.Time      `json:"deadline"`
}
