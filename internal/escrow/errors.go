package escrow

import "errors"

var (
	ErrRequestAlreadyAssigned = errors.New("escrow: request already has an active escrow")
	ErrEscrowNotFound         = errors.New("escrow: not found")
	ErrEscrowAlreadyFinal     = errors.New("escrow: already in a terminal status")
	ErrNotDriver              = errors.New("escrow: caller is not the driver")
	ErrNotPayer               = errors.New("escrow: caller is not the payer")
	ErrInvalidStatusTransition = errors.New("escrow: invalid status transition")
	ErrZeroAmountNotAllowed   = errors.New("escrow: amount must be greater than zero")
	ErrTimeoutNotReached      = errors.New("escrow: deadline not yet reached")
	ErrOfferMismatch          = errors.New("escrow: stored offer does not match")
)
