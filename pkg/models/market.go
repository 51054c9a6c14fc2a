package models

import "github.com/google/uuid"

// Kind distinguishes the two cargo classes PoBA matches: packages carried in a
// courier's trunk and passengers riding along a driver's route.
type Kind uint8

const (
	KindPackage   Kind = 0
	KindPassenger Kind = 1
)

// Bit returns the types_mask bit an offer must carry to serve this kind.
// Kinds outside the known set never have a matching bit and are infeasible
// by construction, matching the original worker's kind_to_bit fallback of 0.
func (k Kind) Bit() uint32 {
	switch k {
	case KindPackage:
		return 1 << 0
	case KindPassenger:
		return 1 << 1
	default:
		return 0
	}
}

// Request is a single open ask for transport: a package waiting for a
// courier, or a passenger waiting for a ride. Zero coordinates/window bounds
// mean "unspecified" per the distance/time feasibility rules in the filter.
type Request struct {
	RequestUUID   uuid.UUID `json:"request_uuid"`
	Kind          Kind      `json:"kind"`
	MaxPriceCents uint32    `json:"max_price_cents"`
	WindowStart   uint64    `json:"window_start"`
	WindowEnd     uint64    `json:"window_end"`
	FromLat       int32     `json:"from_lat"`
	FromLon       int32     `json:"from_lon"`
	ToLat         int32     `json:"to_lat"`
	ToLon         int32     `json:"to_lon"`
	Notes         string    `json:"notes,omitempty"`
}

// Offer is a single open capacity slot: a courier or driver announcing a
// route and a window during which they can carry a package or passenger.
// TypesMask bit 0 admits packages, bit 1 admits passengers.
type Offer struct {
	OfferUUID     uuid.UUID `json:"offer_uuid"`
	MinPriceCents uint32    `json:"min_price_cents"`
	WindowStart   uint64    `json:"window_start"`
	WindowEnd     uint64    `json:"window_end"`
	FromLat       int32     `json:"from_lat"`
	FromLon       int32     `json:"from_lon"`
	ToLat         int32     `json:"to_lat"`
	ToLon         int32     `json:"to_lon"`
	TypesMask     uint32    `json:"types_mask"`
	Notes         string    `json:"notes,omitempty"`
}

// Match is one (request, offer) pair with its agreed price and partial score,
// as produced by the filter and carried through the solver and ledger.
type Match struct {
	RequestUUID      uuid.UUID `json:"request_uuid"`
	OfferUUID        uuid.UUID `json:"offer_uuid"`
	AgreedPriceCents uint32    `json:"agreed_price_cents"`
	PartialScore     int64     `json:"partial_score"`
}
