package ledger

import (
	"errors"
	"testing"

	"github.com/crowdship/poba-engine/pkg/models"
	"github.com/google/uuid"
)

func match(score int64) models.Match {
	return models.Match{RequestUUID: uuid.New(), OfferUUID: uuid.New(), AgreedPriceCents: 100, PartialScore: score}
}

func TestSubmitProposal_RejectsEmptyMatches(t *testing.T) {
	c := NewChain()
	_, err := c.SubmitProposal(models.Proposal{Slot: 1, TotalScore: 0})
	if !errors.Is(err, ErrEmptyMatches) {
		t.Fatalf("expected ErrEmptyMatches, got %v", err)
	}
}

func TestSubmitProposal_RejectsTooManyMatches(t *testing.T) {
	c := NewChain()
	matches := make([]models.Match, models.MaxMatchesPerProposal+1)
	for i := range matches {
		matches[i] = match(1)
	}
	_, err := c.SubmitProposal(models.Proposal{Slot: 1, TotalScore: int64(len(matches)), Matches: matches})
	if !errors.Is(err, ErrTooManyMatches) {
		t.Fatalf("expected ErrTooManyMatches, got %v", err)
	}
}

func TestSubmitProposal_Monotonicity(t *testing.T) {
	c := NewChain()
	m1 := match(100)
	if _, err := c.SubmitProposal(models.Proposal{Slot: 5, TotalScore: 100, Matches: []models.Match{m1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m2 := match(80)
	if _, err := c.SubmitProposal(models.Proposal{Slot: 5, TotalScore: 80, Matches: []models.Match{m2}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	best, ok := c.BestProposal(5)
	if !ok || best.TotalScore != 100 {
		t.Fatalf("expected best score to remain 100 after inferior submission, got %+v", best)
	}

	m3 := match(150)
	if _, err := c.SubmitProposal(models.Proposal{Slot: 5, TotalScore: 150, Matches: []models.Match{m3}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	best, ok = c.BestProposal(5)
	if !ok || best.TotalScore != 150 {
		t.Fatalf("expected best score 150 after improvement, got %+v", best)
	}
}

func TestFinalizeSlot_OneShot(t *testing.T) {
	c := NewChain()
	m1 := match(100)
	if _, err := c.SubmitProposal(models.Proposal{Slot: 5, TotalScore: 100, Matches: []models.Match{m1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := c.FinalizeSlot(5); err != nil {
		t.Fatalf("unexpected error finalizing: %v", err)
	}

	if _, err := c.FinalizeSlot(5); !errors.Is(err, ErrSlotAlreadyFinalized) {
		t.Fatalf("expected ErrSlotAlreadyFinalized on repeat, got %v", err)
	}

	finalized, ok := c.FinalizedProposal(5)
	if !ok || finalized.TotalScore != 100 {
		t.Fatalf("expected finalized proposal to retain score 100, got %+v", finalized)
	}
	if c.LastFinalizedSlot() != 5 {
		t.Errorf("expected LastFinalizedSlot=5, got %d", c.LastFinalizedSlot())
	}
}

func TestFinalizeSlot_NoProposal(t *testing.T) {
	c := NewChain()
	if _, err := c.FinalizeSlot(9); !errors.Is(err, ErrNoProposalForSlot) {
		t.Fatalf("expected ErrNoProposalForSlot, got %v", err)
	}
}

func TestFinalizeSlot_InvalidWinnerScoreMismatch(t *testing.T) {
	c := NewChain()
	m1 := match(100)
	// Declared TotalScore deliberately wrong.
	if _, err := c.SubmitProposal(models.Proposal{Slot: 5, TotalScore: 999, Matches: []models.Match{m1}}); err != nil {
		t.Fatalf("unexpected error submitting: %v", err)
	}
	if _, err := c.FinalizeSlot(5); !errors.Is(err, ErrInvalidWinner) {
		t.Fatalf("expected ErrInvalidWinner, got %v", err)
	}
	if _, ok := c.FinalizedProposal(5); ok {
		t.Errorf("expected no state mutation on failed finalization")
	}
}

func TestFinalizeSlot_InvalidWinnerDuplicateRequest(t *testing.T) {
	c := NewChain()
	req := uuid.New()
	m1 := models.Match{RequestUUID: req, OfferUUID: uuid.New(), PartialScore: 50}
	m2 := models.Match{RequestUUID: req, OfferUUID: uuid.New(), PartialScore: 50}
	if _, err := c.SubmitProposal(models.Proposal{Slot: 5, TotalScore: 100, Matches: []models.Match{m1, m2}}); err != nil {
		t.Fatalf("unexpected error submitting: %v", err)
	}
	if _, err := c.FinalizeSlot(5); !errors.Is(err, ErrInvalidWinner) {
		t.Fatalf("expected ErrInvalidWinner for duplicate request id, got %v", err)
	}
}
