// Package ledger implements the PoBA proposal ledger (C3): per-slot monotone
// best-proposal tracking and one-shot finalization with winner validation.
//
// Grounded in the teacher's internal/heuristics.InvestigationManager: a
// mutex-guarded map of records with total-function methods that return a
// typed error instead of mutating state on failure.
package ledger

import (
	"sync"

	"github.com/crowdship/poba-engine/pkg/models"
)

// Event is emitted by every ledger operation that passes its preconditions,
// including a submission that does not replace the current best, for
// observability; an operation that returns an error emits no event. Callers
// may fan it out to the WebSocket hub or audit log.
type Event struct {
	Type    models.EventType
	Payload interface{}
}

// Chain is the in-memory proposal ledger for one node. Every authority node
// in the network runs its own Chain; there is no cross-process sharing —
// agreement emerges from every node observing the same finalize_slot calls
// against the same backend-fronted ledger.
type Chain struct {
	mu sync.Mutex

	best       map[uint64]models.Proposal
	finalized  map[uint64]models.Proposal
	lastFinal  uint64
}

// NewChain returns an empty proposal ledger.
func NewChain() *Chain {
	return &Chain{
		best:      make(map[uint64]models.Proposal),
		finalized: make(map[uint64]models.Proposal),
	}
}

// SubmitProposal installs p as the slot's best proposal if no best exists
// yet, or replaces it iff p.TotalScore is strictly greater than the current
// best. Re-submitting an inferior or equal proposal is a no-op for storage
// but still emits ProposalSubmitted, matching the replay/idempotence
// requirement.
func (c *Chain) SubmitProposal(p models.Proposal) (Event, error) {
	if len(p.Matches) == 0 {
		return Event{}, ErrEmptyMatches
	}
	if len(p.Matches) > models.MaxMatchesPerProposal {
		return Event{}, ErrTooManyMatches
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.best[p.Slot]
	if !ok || p.TotalScore > existing.TotalScore {
		c.best[p.Slot] = p
	}

	return Event{
		Type: models.EventProposalSubmitted,
		Payload: models.ProposalSubmittedPayload{
			Slot:       p.Slot,
			TotalScore: p.TotalScore,
			MatchesLen: len(p.Matches),
			Proposer:   p.Proposer,
		},
	}, nil
}

// FinalizeSlot promotes the slot's current best proposal to finalized,
// validating the winner first. Finalization is strictly one-shot: a slot
// already present in FinalizedProposal cannot be finalized again.
func (c *Chain) FinalizeSlot(slot uint64) (Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, done := c.finalized[slot]; done {
		return Event{}, ErrSlotAlreadyFinalized
	}

	winner, ok := c.best[slot]
	if !ok {
		return Event{}, ErrNoProposalForSlot
	}

	if err := validateWinner(winner); err != nil {
		return Event{}, err
	}

	c.finalized[slot] = winner
	if slot > c.lastFinal {
		c.lastFinal = slot
	}

	return Event{
		Type: models.EventSlotFinalized,
		Payload: models.SlotFinalizedPayload{
			Slot:       slot,
			TotalScore: winner.TotalScore,
			MatchesLen: len(winner.Matches),
		},
	}, nil
}

// BestProposal returns the current best proposal for slot, if any.
func (c *Chain) BestProposal(slot uint64) (models.Proposal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.best[slot]
	return p, ok
}

// FinalizedProposal returns the finalized proposal for slot, if any.
func (c *Chain) FinalizedProposal(slot uint64) (models.Proposal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.finalized[slot]
	return p, ok
}

// LastFinalizedSlot returns the highest slot number finalized so far.
func (c *Chain) LastFinalizedSlot() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFinal
}

// validateWinner checks the two winner-validation rules from the proposal
// ledger contract: no duplicate request/offer id, and the declared
// TotalScore equals the sum of its matches' PartialScore.
func validateWinner(p models.Proposal) error {
	if p.HasDuplicateIDs() {
		return ErrInvalidWinner
	}
	if p.TotalScore != p.SumPartialScores() {
		return ErrInvalidWinner
	}
	return nil
}
