// Package filter implements the PoBA feasibility filter (C1): for every
// (request, offer) pair it decides admissibility under the type, price,
// time-window, and distance predicates, and when admissible computes the
// agreed price, cost (penalty), and partial score.
package filter

import (
	"math"

	"github.com/crowdship/poba-engine/pkg/models"
)

// Infeasible is the "infinity" cost sentinel, chosen to exceed N*skip_cost
// plus any achievable penalty for realistic parameters.
const Infeasible int64 = 1_000_000_000_000 // 10^12

// Params holds every tunable of the filter and solver, sourced from the
// POBA_* environment variables described in the configuration.
type Params struct {
	BaseScore   int64
	AlphaPerKm  float64
	BetaPerCent float64
	SkipCost    int64

	MaxStartKm float64 // 0 = disabled
	MaxEndKm   float64 // 0 = disabled
	MaxTotalKm float64 // 0 = disabled

	RequireTimeOverlap bool
	MinOverlapMs       int64
	EarlySlackMs       int64
	LateSlackMs        int64
}

// DefaultParams returns the filter/solver defaults named in the
// configuration environment.
func DefaultParams() Params {
	return Params{
		BaseScore:          1_000_000,
		AlphaPerKm:         1000.0,
		BetaPerCent:        1.0,
		SkipCost:           100_000_000,
		RequireTimeOverlap: true,
	}
}

// DebugCounters accompanies a built table set for observability: how many
// pairs were rejected by each predicate, and how many survived.
type DebugCounters struct {
	TotalPairs         int64
	FilteredByType     int64
	FilteredByPrice    int64
	FilteredByTime     int64
	FilteredByDistance int64
	FeasiblePairs      int64
}

// Tables is the N x M triple of integer matrices the solver consumes.
// Cost[i][j] == Infeasible marks an inadmissible pair.
type Tables struct {
	Cost         [][]int64
	PartialScore [][]int64
	AgreedPrice  [][]int64
	Debug        DebugCounters
}

// Build computes the feasibility tables for every (request, offer) pair, in
// request-major, offer-minor order, matching the solver's expected indexing.
func Build(requests []models.Request, offers []models.Offer, p Params) Tables {
	n := len(requests)
	m := len(offers)

	t := Tables{
		Cost:         make([][]int64, n),
		PartialScore: make([][]int64, n),
		AgreedPrice:  make([][]int64, n),
	}
	for i := range t.Cost {
		t.Cost[i] = make([]int64, m)
		t.PartialScore[i] = make([]int64, m)
		t.AgreedPrice[i] = make([]int64, m)
		for j := range t.Cost[i] {
			t.Cost[i][j] = Infeasible
		}
	}

	maxStartKm := optionalCap(p.MaxStartKm)
	maxEndKm := optionalCap(p.MaxEndKm)
	maxTotalKm := optionalCap(p.MaxTotalKm)
	anyDistanceCap := maxStartKm != nil || maxEndKm != nil || maxTotalKm != nil

	for i, r := range requests {
		rBit := r.Kind.Bit()

		for j, o := range offers {
			t.Debug.TotalPairs++

			// 1) Type feasibility.
			if rBit != 0 && (uint32(o.TypesMask)&rBit) == 0 {
				t.Debug.FilteredByType++
				continue
			}
			if rBit == 0 {
				// kind outside {package, passenger}: never feasible.
				t.Debug.FilteredByType++
				continue
			}

			// 2) Price feasibility.
			reqMax := int64(r.MaxPriceCents)
			offMin := int64(o.MinPriceCents)
			if reqMax > 0 && offMin > reqMax {
				t.Debug.FilteredByPrice++
				continue
			}

			// 3) Time-window feasibility.
			if p.RequireTimeOverlap {
				if !intervalsOverlap(r.WindowStart, r.WindowEnd, o.WindowStart, o.WindowEnd,
					p.MinOverlapMs, p.EarlySlackMs, p.LateSlackMs, p.RequireTimeOverlap) {
					t.Debug.FilteredByTime++
					continue
				}
			}

			// 4) Distance feasibility.
			coordsMissing := r.FromLat == 0 || r.FromLon == 0 || r.ToLat == 0 || r.ToLon == 0 ||
				o.FromLat == 0 || o.FromLon == 0 || o.ToLat == 0 || o.ToLon == 0

			var dStart, dEnd float64
			if coordsMissing {
				if anyDistanceCap {
					t.Debug.FilteredByDistance++
					continue
				}
				dStart, dEnd = 0, 0
			} else {
				dStart = haversineKm(r.FromLat, r.FromLon, o.FromLat, o.FromLon)
				dEnd = haversineKm(r.ToLat, r.ToLon, o.ToLat, o.ToLon)
			}
			dTotal := dStart + dEnd

			if maxStartKm != nil && dStart > *maxStartKm {
				t.Debug.FilteredByDistance++
				continue
			}
			if maxEndKm != nil && dEnd > *maxEndKm {
				t.Debug.FilteredByDistance++
				continue
			}
			if maxTotalKm != nil && dTotal > *maxTotalKm {
				t.Debug.FilteredByDistance++
				continue
			}

			// Agreed price.
			var agreed int64
			if reqMax > 0 {
				agreed = (offMin + reqMax) / 2
			} else {
				agreed = offMin
			}
			if agreed < 1 {
				agreed = 1
			}

			// Cost & score.
			penalty := roundHalfAwayFromZero(p.AlphaPerKm*dTotal + p.BetaPerCent*float64(agreed))
			score := p.BaseScore - penalty
			if score < 0 {
				score = 0
			}

			t.Cost[i][j] = penalty
			t.PartialScore[i][j] = score
			t.AgreedPrice[i][j] = agreed
			t.Debug.FeasiblePairs++
		}
	}

	return t
}

func optionalCap(v float64) *float64 {
	if v > 0 {
		return &v
	}
	return nil
}

func roundHalfAwayFromZero(x float64) int64 {
	if x >= 0 {
		return int64(math.Floor(x + 0.5))
	}
	return int64(math.Ceil(x - 0.5))
}

// intervalsOverlap implements the request/offer time-window predicate: any
// bound being zero means "no guarantee" and rejects the pair whenever an
// overlap is required; otherwise the offer's window is widened by the
// configured slack and the remaining overlap must meet the minimum.
func intervalsOverlap(aStart, aEnd, bStart, bEnd uint64, minOverlapMs, earlySlackMs, lateSlackMs int64, requireOverlap bool) bool {
	if aStart == 0 || aEnd == 0 || bStart == 0 || bEnd == 0 {
		return !requireOverlap
	}

	aS := int64(aStart)
	aE := int64(aEnd)
	bS := int64(bStart) - earlySlackMs
	bE := int64(bEnd) + lateSlackMs

	overlap := minInt64(aE, bE) - maxInt64(aS, bS)
	minRequired := maxInt64(0, minOverlapMs)
	return overlap >= minRequired
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
