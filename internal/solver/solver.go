// Package solver implements the PoBA assignment solver (C2): a depth-first
// branch-and-bound search over the filter's cost table that finds the
// minimum-cost (maximum-score) assignment of requests to offers, allowing
// any request to be skipped at a fixed penalty.
//
// Grounded in the teacher's internal/heuristics backtracking solvers
// (cpsat_solver.go, dp_solver.go): an explicit guardrail that refuses to run
// on oversized instances, and a small recursive search function closed over
// the problem tables rather than a generic solver object.
package solver

import (
	"fmt"

	"github.com/crowdship/poba-engine/internal/filter"
	"github.com/crowdship/poba-engine/pkg/models"
)

// MaxOffers is the solver's bitset width: offers beyond this count cannot be
// represented in the used-offers mask.
const MaxOffers = 64

// Result is the outcome of a solve: the chosen assignment plus its total
// score. Empty is valid and means "no request was matched" (every request
// was skipped, or the instance was empty).
type Result struct {
	Matches    []models.Match
	TotalScore int64
}

// Solve runs the branch-and-bound search over the already-filtered tables
// and reconstructs the winning Match list. requests/offers must be the same
// slices (by index) used to Build the tables.
func Solve(requests []models.Request, offers []models.Offer, tbl filter.Tables, p filter.Params) (Result, error) {
	n := len(requests)
	m := len(offers)

	if n == 0 || m == 0 {
		return Result{}, nil
	}
	if m > MaxOffers {
		return Result{}, fmt.Errorf("solver: %d offers exceeds bitset capacity of %d", m, MaxOffers)
	}

	s := &search{
		cost:     tbl.Cost,
		skipCost: p.SkipCost,
		n:        n,
		m:        m,

		bestCost:   filter.Infeasible,
		bestAssign: make([]int, n),
		curAssign:  make([]int, n),
	}
	for i := range s.bestAssign {
		s.bestAssign[i] = -1
		s.curAssign[i] = -1
	}

	s.dfs(0, 0, 0)

	if s.bestCost >= filter.Infeasible {
		return Result{}, nil
	}

	var matches []models.Match
	var totalScore int64
	for i, j := range s.bestAssign {
		if j < 0 {
			continue
		}
		r := requests[i]
		o := offers[j]
		score := tbl.PartialScore[i][j]
		matches = append(matches, models.Match{
			RequestUUID:      r.RequestUUID,
			OfferUUID:        o.OfferUUID,
			AgreedPriceCents: uint32(tbl.AgreedPrice[i][j]),
			PartialScore:     score,
		})
		totalScore += score
	}

	return Result{Matches: matches, TotalScore: totalScore}, nil
}

// search holds the mutable state threaded through the recursive dfs so that
// Solve itself stays a thin, allocation-light entry point.
type search struct {
	cost     [][]int64
	skipCost int64
	n, m     int

	bestCost   int64
	bestAssign []int
	curAssign  []int
}

// dfs explores request i with the given used-offer bitmask and accumulated
// cost so far. Real matches are tried before skipping a request, so that
// ties are resolved toward real assignments; only a strictly lower cost
// replaces the best, so among equal-cost full solutions the first one found
// is kept.
func (s *search) dfs(i int, usedMask uint64, accCost int64) {
	if i == s.n {
		if accCost < s.bestCost {
			s.bestCost = accCost
			copy(s.bestAssign, s.curAssign)
		}
		return
	}

	if accCost >= s.bestCost {
		return
	}

	row := s.cost[i]
	for j := 0; j < s.m; j++ {
		if usedMask&(1<<uint(j)) != 0 {
			continue
		}
		cij := row[j]
		if cij >= filter.Infeasible {
			continue
		}
		newCost := accCost + cij
		if newCost >= s.bestCost {
			continue
		}

		s.curAssign[i] = j
		s.dfs(i+1, usedMask|(1<<uint(j)), newCost)
		s.curAssign[i] = -1
	}

	newCost := accCost + s.skipCost
	if newCost < s.bestCost {
		s.curAssign[i] = -1
		s.dfs(i+1, usedMask, newCost)
	}
}
