package filter

import (
	"testing"

	"github.com/crowdship/poba-engine/pkg/models"
	"github.com/google/uuid"
)

func TestBuild_SingleFeasibleMatch(t *testing.T) {
	requests := []models.Request{{
		RequestUUID:   uuid.New(),
		Kind:          models.KindPackage,
		MaxPriceCents: 1000,
		WindowStart:   0,
		WindowEnd:     10_000,
	}}
	offers := []models.Offer{{
		OfferUUID:     uuid.New(),
		MinPriceCents: 500,
		TypesMask:     1,
		WindowStart:   0,
		WindowEnd:     10_000,
	}}

	p := DefaultParams()
	p.RequireTimeOverlap = false // both windows start at 0, which the time predicate would reject as unspecified

	tbl := Build(requests, offers, p)

	if tbl.Cost[0][0] == Infeasible {
		t.Fatalf("expected pair to be feasible, got cost=%d", tbl.Cost[0][0])
	}
	if tbl.AgreedPrice[0][0] != 750 {
		t.Errorf("expected agreed price 750, got %d", tbl.AgreedPrice[0][0])
	}
	if tbl.PartialScore[0][0] != 999_250 {
		t.Errorf("expected score 999250, got %d", tbl.PartialScore[0][0])
	}
}

func TestBuild_TypeMismatch(t *testing.T) {
	requests := []models.Request{{RequestUUID: uuid.New(), Kind: models.KindPackage}}
	offers := []models.Offer{{OfferUUID: uuid.New(), MinPriceCents: 500, TypesMask: 2}}

	p := DefaultParams()
	p.RequireTimeOverlap = false

	tbl := Build(requests, offers, p)

	if tbl.Cost[0][0] != Infeasible {
		t.Errorf("expected infeasible pair on type mismatch, got cost=%d", tbl.Cost[0][0])
	}
	if tbl.Debug.FilteredByType != 1 {
		t.Errorf("expected FilteredByType=1, got %d", tbl.Debug.FilteredByType)
	}
}

func TestBuild_PriceInfeasible(t *testing.T) {
	requests := []models.Request{{RequestUUID: uuid.New(), Kind: models.KindPackage, MaxPriceCents: 1000}}
	offers := []models.Offer{{OfferUUID: uuid.New(), MinPriceCents: 2000, TypesMask: 1}}

	p := DefaultParams()
	p.RequireTimeOverlap = false

	tbl := Build(requests, offers, p)

	if tbl.Cost[0][0] != Infeasible {
		t.Errorf("expected infeasible pair on price mismatch, got cost=%d", tbl.Cost[0][0])
	}
	if tbl.Debug.FilteredByPrice != 1 {
		t.Errorf("expected FilteredByPrice=1, got %d", tbl.Debug.FilteredByPrice)
	}
}

func TestBuild_UnknownKindAlwaysInfeasible(t *testing.T) {
	requests := []models.Request{{RequestUUID: uuid.New(), Kind: models.Kind(5)}}
	offers := []models.Offer{{OfferUUID: uuid.New(), MinPriceCents: 1, TypesMask: 0b11}}

	p := DefaultParams()
	p.RequireTimeOverlap = false

	tbl := Build(requests, offers, p)

	if tbl.Cost[0][0] != Infeasible {
		t.Errorf("expected unknown kind to be infeasible, got cost=%d", tbl.Cost[0][0])
	}
}

func TestIntervalsOverlap_ZeroBoundRejectsWhenRequired(t *testing.T) {
	if intervalsOverlap(0, 10_000, 1, 10_000, 0, 0, 0, true) {
		t.Errorf("expected zero bound to reject overlap when required")
	}
	if !intervalsOverlap(0, 10_000, 1, 10_000, 0, 0, 0, false) {
		t.Errorf("expected zero bound to be treated as satisfied when overlap not required")
	}
}

func TestIntervalsOverlap_SlackWidensWindow(t *testing.T) {
	// request window [1,1000], offer window [1200,2000], no overlap unless
	// early slack widens the offer start backward.
	if intervalsOverlap(1, 1000, 1200, 2000, 0, 0, 0, true) {
		t.Errorf("expected no overlap without slack")
	}
	if !intervalsOverlap(1, 1000, 1200, 2000, 0, 300, 0, true) {
		t.Errorf("expected overlap once early slack widens the offer window")
	}
}

func TestHaversineKm_ZeroDistanceForIdenticalPoints(t *testing.T) {
	d := haversineKm(40_000_000, -74_000_000, 40_000_000, -74_000_000)
	if d != 0 {
		t.Errorf("expected zero distance for identical points, got %f", d)
	}
}
