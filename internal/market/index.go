// Package market implements the PoBA market index (C6): a mirror of the
// off-chain backend's request/offer tables, keyed by their own uuid, so
// proposer nodes can read a stable on-chain snapshot without depending on
// the backend's database directly.
//
// Grounded in pallets/bids: the same two StorageMaps (Requests, Offers)
// keyed by uuid, the same owner/courier attribution fields, and the same
// AlreadyExists/NotFound error pair.
package market

import (
	"errors"
	"sync"

	"github.com/crowdship/poba-engine/pkg/models"
	"github.com/google/uuid"
)

var (
	ErrAlreadyExists = errors.New("market: marker already exists")
	ErrNotFound      = errors.New("market: marker not found")
)

// RequestMarker mirrors one open request, with its owning account attached.
type RequestMarker struct {
	models.Request
	Owner string
}

// OfferMarker mirrors one open offer, with its owning account attached.
type OfferMarker struct {
	models.Offer
	Courier string
}

// Index is the mutex-guarded on-chain mirror of the off-chain market.
type Index struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]RequestMarker
	offers   map[uuid.UUID]OfferMarker
}

// NewIndex returns an empty market index.
func NewIndex() *Index {
	return &Index{
		requests: make(map[uuid.UUID]RequestMarker),
		offers:   make(map[uuid.UUID]OfferMarker),
	}
}

// IndexRequest announces a new request marker. Fails if one already exists
// for that uuid.
func (idx *Index) IndexRequest(owner string, r models.Request) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.requests[r.RequestUUID]; ok {
		return ErrAlreadyExists
	}
	idx.requests[r.RequestUUID] = RequestMarker{Request: r, Owner: owner}
	return nil
}

// IndexOffer announces a new offer marker. Fails if one already exists for
// that uuid.
func (idx *Index) IndexOffer(courier string, o models.Offer) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.offers[o.OfferUUID]; ok {
		return ErrAlreadyExists
	}
	idx.offers[o.OfferUUID] = OfferMarker{Offer: o, Courier: courier}
	return nil
}

// RemoveRequest drops a request marker, e.g. once the backend closes it.
func (idx *Index) RemoveRequest(id uuid.UUID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.requests[id]; !ok {
		return ErrNotFound
	}
	delete(idx.requests, id)
	return nil
}

// RemoveOffer drops an offer marker.
func (idx *Index) RemoveOffer(id uuid.UUID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.offers[id]; !ok {
		return ErrNotFound
	}
	delete(idx.offers, id)
	return nil
}

// OpenRequests returns every currently-indexed request.
func (idx *Index) OpenRequests() []models.Request {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]models.Request, 0, len(idx.requests))
	for _, m := range idx.requests {
		out = append(out, m.Request)
	}
	return out
}

// ActiveOffers returns every currently-indexed offer.
func (idx *Index) ActiveOffers() []models.Offer {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]models.Offer, 0, len(idx.offers))
	for _, m := range idx.offers {
		out = append(out, m.Offer)
	}
	return out
}
