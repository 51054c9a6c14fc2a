package shadow

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/crowdship/poba-engine/internal/filter"
	"github.com/crowdship/poba-engine/pkg/models"
)

func TestRunComparison_IdenticalParamsYieldPerfectAgreement(t *testing.T) {
	// ARI needs at least two requests to be meaningful (n<2 is defined as 0).
	reqA := models.Request{
		RequestUUID: uuid.New(), Kind: models.KindPackage, MaxPriceCents: 1000,
		WindowStart: 1000, WindowEnd: 2000,
	}
	reqB := models.Request{
		RequestUUID: uuid.New(), Kind: models.KindPackage, MaxPriceCents: 1000,
		WindowStart: 1000, WindowEnd: 2000,
	}
	offA := models.Offer{
		OfferUUID: uuid.New(), MinPriceCents: 500, TypesMask: 1,
		WindowStart: 1000, WindowEnd: 2000,
	}
	offB := models.Offer{
		OfferUUID: uuid.New(), MinPriceCents: 500, TypesMask: 1,
		WindowStart: 1000, WindowEnd: 2000,
	}

	params := filter.DefaultParams()
	r := NewRunner(nil, "no-op-tuning", params, params)

	result, err := r.RunComparison(context.Background(), 42,
		[]models.Request{reqA, reqB}, []models.Offer{offA, offB})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProductionScore != result.ShadowScore {
		t.Errorf("expected identical scores for identical params, got prod=%d shadow=%d",
			result.ProductionScore, result.ShadowScore)
	}
	if result.AdjustedRandIndex < 0.99 {
		t.Errorf("expected ARI near 1.0 for identical tunings, got %f", result.AdjustedRandIndex)
	}
}

func TestRunComparison_TighterSkipCostChangesAssignment(t *testing.T) {
	req := models.Request{
		RequestUUID: uuid.New(), Kind: models.KindPackage, MaxPriceCents: 1000,
		WindowStart: 1000, WindowEnd: 2000,
	}
	off := models.Offer{
		OfferUUID: uuid.New(), MinPriceCents: 999, TypesMask: 1,
		WindowStart: 1000, WindowEnd: 2000,
	}

	production := filter.DefaultParams()
	shadowCandidate := filter.DefaultParams()
	shadowCandidate.SkipCost = -1 // always prefer skipping over any real match

	r := NewRunner(nil, "aggressive-skip", production, shadowCandidate)
	result, err := r.RunComparison(context.Background(), 7, []models.Request{req}, []models.Offer{off})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ShadowScore >= result.ProductionScore {
		t.Errorf("expected shadow tuning to produce a lower (all-skip) score, got prod=%d shadow=%d",
			result.ProductionScore, result.ShadowScore)
	}
}
