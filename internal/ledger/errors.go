package ledger

import "errors"

var (
	ErrTooManyMatches     = errors.New("ledger: proposal exceeds max matches per proposal")
	ErrEmptyMatches       = errors.New("ledger: proposal has no matches")
	ErrNoProposalForSlot  = errors.New("ledger: no best proposal exists for slot")
	ErrSlotAlreadyFinalized = errors.New("ledger: slot already finalized")
	ErrInvalidWinner      = errors.New("ledger: invalid winner (duplicate id or score mismatch)")
)
