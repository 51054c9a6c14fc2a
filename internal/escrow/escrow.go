// Package escrow implements the PoBA escrow state machine (C4): per-assignment
// lifecycle with authorization rules, transitions, and timeout-based
// release, grounded directly on the pallets/escrow state machine this
// system's ledger replaces: the same status names, the same transition
// table, the same request_uuid -> escrow_id secondary index.
package escrow

import (
	"sync"
	"time"

	"github.com/crowdship/poba-engine/pkg/models"
	"github.com/google/uuid"
)

// Event is emitted by every escrow operation that mutates state.
type Event struct {
	Type    models.EventType
	Payload interface{}
}

// Chain is the in-memory escrow ledger for one node. NextEscrowId and the
// request -> escrow index are both localized here; the escrow record itself
// never points back to the index, resolving the ownership cycle.
type Chain struct {
	mu sync.Mutex

	nextID         uint64
	escrows        map[uint64]models.AssignmentEscrow
	requestToEscrow map[uuid.UUID]uint64

	confirmationTimeout time.Duration
}

// NewChain returns an empty escrow ledger. confirmationTimeout is the
// deadline window applied to every newly created escrow (ConfirmationTimeout
// in the configuration environment).
func NewChain(confirmationTimeout time.Duration) *Chain {
	return &Chain{
		escrows:         make(map[uint64]models.AssignmentEscrow),
		requestToEscrow: make(map[uuid.UUID]uint64),
		confirmationTimeout: confirmationTimeout,
	}
}

// hasActiveEscrow reports whether requestUUID currently has a non-terminal
// escrow. Caller must hold c.mu.
func (c *Chain) hasActiveEscrow(requestUUID uuid.UUID) bool {
	id, ok := c.requestToEscrow[requestUUID]
	if !ok {
		return false
	}
	e, ok := c.escrows[id]
	return ok && !e.Status.IsTerminal()
}

// CreateEscrow allocates a new escrow for a finalized (request, offer) match.
func (c *Chain) CreateEscrow(requestUUID, offerUUID uuid.UUID, driver, payer string, amount uint64, now time.Time) (models.AssignmentEscrow, Event, error) {
	if amount == 0 {
		return models.AssignmentEscrow{}, Event{}, ErrZeroAmountNotAllowed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasActiveEscrow(requestUUID) {
		return models.AssignmentEscrow{}, Event{}, ErrRequestAlreadyAssigned
	}

	id := c.nextID
	c.nextID++

	e := models.AssignmentEscrow{
		EscrowID:    id,
		RequestUUID: requestUUID,
		OfferUUID:   offerUUID,
		Driver:      driver,
		Payer:       payer,
		Amount:      amount,
		Status:      models.StatusCreated,
		CreatedAt:   now,
		Deadline:    now.Add(c.confirmationTimeout),
	}
	c.escrows[id] = e
	c.requestToEscrow[requestUUID] = id

	return e, Event{
		Type: models.EventEscrowCreated,
		Payload: models.EscrowCreatedPayload{
			EscrowID:    id,
			RequestUUID: requestUUID,
			OfferUUID:   offerUUID,
			Driver:      driver,
			Payer:       payer,
			Amount:      amount,
			DeadlineUTC: e.Deadline.UTC().Format(time.RFC3339),
		},
	}, nil
}

// Get returns the escrow record by id.
func (c *Chain) Get(id uint64) (models.AssignmentEscrow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.escrows[id]
	return e, ok
}

// GetByRequest returns the active escrow for a request, if any.
func (c *Chain) GetByRequest(requestUUID uuid.UUID) (models.AssignmentEscrow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.requestToEscrow[requestUUID]
	if !ok {
		return models.AssignmentEscrow{}, false
	}
	e, ok := c.escrows[id]
	return e, ok
}

func (c *Chain) transition(id uint64, caller string, from models.DeliveryStatus, to models.DeliveryStatus, authz func(e models.AssignmentEscrow) error) (models.AssignmentEscrow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.escrows[id]
	if !ok {
		return models.AssignmentEscrow{}, ErrEscrowNotFound
	}
	if e.Status.IsTerminal() {
		return models.AssignmentEscrow{}, ErrEscrowAlreadyFinal
	}
	if authz != nil {
		if err := authz(e); err != nil {
			return models.AssignmentEscrow{}, err
		}
	}
	if e.Status != from {
		return models.AssignmentEscrow{}, ErrInvalidStatusTransition
	}

	e.Status = to
	c.escrows[id] = e
	return e, nil
}

// MarkPickedUp transitions Created -> PickedUpByCourier. Caller must be the
// escrow's recorded driver.
func (c *Chain) MarkPickedUp(id uint64, caller string) (models.AssignmentEscrow, Event, error) {
	e, err := c.transition(id, caller, models.StatusCreated, models.StatusPickedUpByCourier, func(e models.AssignmentEscrow) error {
		if e.Driver != caller {
			return ErrNotDriver
		}
		return nil
	})
	if err != nil {
		return models.AssignmentEscrow{}, Event{}, err
	}
	return e, Event{Type: models.EventPickedUp, Payload: models.EscrowIDPayload{EscrowID: id}}, nil
}

// MarkDelivered transitions PickedUpByCourier -> DeliveredByCourier. Caller
// must be the escrow's recorded driver.
func (c *Chain) MarkDelivered(id uint64, caller string) (models.AssignmentEscrow, Event, error) {
	e, err := c.transition(id, caller, models.StatusPickedUpByCourier, models.StatusDeliveredByCourier, func(e models.AssignmentEscrow) error {
		if e.Driver != caller {
			return ErrNotDriver
		}
		return nil
	})
	if err != nil {
		return models.AssignmentEscrow{}, Event{}, err
	}
	return e, Event{Type: models.EventDelivered, Payload: models.EscrowIDPayload{EscrowID: id}}, nil
}

// ConfirmReceived transitions DeliveredByCourier -> ConfirmedByReceiver
// (terminal) and releases payment. Caller must be the escrow's recorded
// payer.
func (c *Chain) ConfirmReceived(id uint64, caller string) (models.AssignmentEscrow, []Event, error) {
	e, err := c.transition(id, caller, models.StatusDeliveredByCourier, models.StatusConfirmedByReceiver, func(e models.AssignmentEscrow) error {
		if e.Payer != caller {
			return ErrNotPayer
		}
		return nil
	})
	if err != nil {
		return models.AssignmentEscrow{}, nil, err
	}
	return e, []Event{
		{Type: models.EventReceiverConfirmed, Payload: models.EscrowIDPayload{EscrowID: id}},
		{Type: models.EventPaymentReleased, Payload: models.PaymentReleasedPayload{EscrowID: id, Amount: e.Amount}},
	}, nil
}

// ReleaseEscrow is the backend-facing release path: it looks the escrow up
// by request_uuid rather than escrow_id, validates the stored offer_uuid
// matches, and force-completes it as ConfirmedByReceiver.
func (c *Chain) ReleaseEscrow(requestUUID, offerUUID uuid.UUID) (models.AssignmentEscrow, []Event, error) {
	c.mu.Lock()
	id, ok := c.requestToEscrow[requestUUID]
	if !ok {
		c.mu.Unlock()
		return models.AssignmentEscrow{}, nil, ErrEscrowNotFound
	}
	e, ok := c.escrows[id]
	c.mu.Unlock()
	if !ok {
		return models.AssignmentEscrow{}, nil, ErrEscrowNotFound
	}
	if e.OfferUUID != offerUUID {
		return models.AssignmentEscrow{}, nil, ErrOfferMismatch
	}
	if e.Status.IsTerminal() {
		return models.AssignmentEscrow{}, nil, ErrEscrowAlreadyFinal
	}

	c.mu.Lock()
	e = c.escrows[id]
	if e.Status.IsTerminal() {
		c.mu.Unlock()
		return models.AssignmentEscrow{}, nil, ErrEscrowAlreadyFinal
	}
	e.Status = models.StatusConfirmedByReceiver
	c.escrows[id] = e
	c.mu.Unlock()

	return e, []Event{
		{Type: models.EventReceiverConfirmed, Payload: models.EscrowIDPayload{EscrowID: id}},
		{Type: models.EventPaymentReleased, Payload: models.PaymentReleasedPayload{EscrowID: id, Amount: e.Amount}},
	}, nil
}

// ForceTimeoutRelease transitions any non-terminal escrow to
// TimeoutReleased once now has reached its deadline. Callable by anyone.
func (c *Chain) ForceTimeoutRelease(id uint64, now time.Time) (models.AssignmentEscrow, []Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.escrows[id]
	if !ok {
		return models.AssignmentEscrow{}, nil, ErrEscrowNotFound
	}
	if e.Status.IsTerminal() {
		return models.AssignmentEscrow{}, nil, ErrEscrowAlreadyFinal
	}
	if now.Before(e.Deadline) {
		return models.AssignmentEscrow{}, nil, ErrTimeoutNotReached
	}

	e.Status = models.StatusTimeoutReleased
	c.escrows[id] = e

	return e, []Event{
		{Type: models.EventPaymentReleased, Payload: models.PaymentReleasedPayload{EscrowID: id, Amount: e.Amount}},
	}, nil
}
