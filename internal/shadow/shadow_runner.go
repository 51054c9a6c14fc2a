// Package shadow trials an experimental solver tuning against the tuning a
// node currently runs in production, on the same market snapshot, without
// ever submitting the experimental result to the proposal ledger.
//
// Adapted from the teacher's ShadowRunner, which ran an experimental
// heuristic alongside production and diffed their output flags; here the
// two "heuristics" are two filter.Params configurations and the diff is
// over assignment partitions instead of per-tx flag bits.
package shadow

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crowdship/poba-engine/internal/filter"
	"github.com/crowdship/poba-engine/internal/metrics"
	"github.com/crowdship/poba-engine/internal/solver"
	"github.com/crowdship/poba-engine/pkg/models"
)

// Runner compares a production Params against a shadow (experimental) Params
// on the same request/offer snapshot.
type Runner struct {
	pool            *pgxpool.Pool
	shadowLabel     string
	productionParams filter.Params
	shadowParams     filter.Params
}

// Result captures the divergence between the production and shadow solves
// for one snapshot.
type Result struct {
	ShadowLabel        string    `json:"shadowLabel"`
	Slot               uint64    `json:"slot"`
	ProductionScore    int64     `json:"productionScore"`
	ShadowScore        int64     `json:"shadowScore"`
	AdjustedRandIndex  float64   `json:"adjustedRandIndex"`
	VariationOfInfo    float64   `json:"variationOfInfo"`
	CreatedAt          time.Time `json:"createdAt"`
}

// NewRunner creates a runner that compares production vs experimental solver
// tunings. pool may be nil, in which case results are computed but not
// persisted (useful for one-off CLI comparisons).
func NewRunner(pool *pgxpool.Pool, shadowLabel string, production, shadowCandidate filter.Params) *Runner {
	return &Runner{
		pool:             pool,
		shadowLabel:      shadowLabel,
		productionParams: production,
		shadowParams:     shadowCandidate,
	}
}

// RunComparison solves the given snapshot under both tunings, scores the
// structural divergence between the two assignments, and persists the
// comparison to shadow_results if a pool is configured.
func (r *Runner) RunComparison(ctx context.Context, slot uint64, requests []models.Request, offers []models.Offer) (*Result, error) {
	prodTbl := filter.Build(requests, offers, r.productionParams)
	prodRes, err := solver.Solve(requests, offers, prodTbl, r.productionParams)
	if err != nil {
		return nil, err
	}

	shadowTbl := filter.Build(requests, offers, r.shadowParams)
	shadowRes, err := solver.Solve(requests, offers, shadowTbl, r.shadowParams)
	if err != nil {
		return nil, err
	}

	predicted, groundTruth := partitionLabels(requests, offers, prodRes.Matches, shadowRes.Matches)

	result := &Result{
		ShadowLabel:       r.shadowLabel,
		Slot:              slot,
		ProductionScore:   prodRes.TotalScore,
		ShadowScore:       shadowRes.TotalScore,
		AdjustedRandIndex: metrics.AdjustedRandIndex(predicted, groundTruth),
		VariationOfInfo:   metrics.VariationOfInformation(predicted, groundTruth),
		CreatedAt:         time.Now(),
	}

	if result.AdjustedRandIndex < 0.8 {
		log.Printf("[Shadow] DIVERGENCE on slot %d (label=%s): ari=%.3f vi=%.3f prod_score=%d shadow_score=%d",
			slot, r.shadowLabel, result.AdjustedRandIndex, result.VariationOfInfo, result.ProductionScore, result.ShadowScore)
	}

	if r.pool != nil {
		if err := r.persist(ctx, result); err != nil {
			return result, err
		}
	}

	return result, nil
}

// partitionLabels turns two match sets over the same request list into two
// parallel integer-label slices suitable for metrics.AdjustedRandIndex: each
// request gets the index of the offer it was assigned to (or -1 for
// unassigned), under production matches and under shadow matches
// respectively.
func partitionLabels(requests []models.Request, offers []models.Offer, prodMatches, shadowMatches []models.Match) ([]int, []int) {
	offerIdx := make(map[string]int, len(offers))
	for j, o := range offers {
		offerIdx[o.OfferUUID.String()] = j
	}
	prodAssign := make(map[string]int, len(prodMatches))
	for _, m := range prodMatches {
		prodAssign[m.RequestUUID.String()] = offerIdx[m.OfferUUID.String()]
	}
	shadowAssign := make(map[string]int, len(shadowMatches))
	for _, m := range shadowMatches {
		shadowAssign[m.RequestUUID.String()] = offerIdx[m.OfferUUID.String()]
	}

	predicted := make([]int, len(requests))
	groundTruth := make([]int, len(requests))
	for i, req := range requests {
		key := req.RequestUUID.String()
		if idx, ok := prodAssign[key]; ok {
			predicted[i] = idx
		} else {
			predicted[i] = -1
		}
		if idx, ok := shadowAssign[key]; ok {
			groundTruth[i] = idx
		} else {
			groundTruth[i] = -1
		}
	}
	return predicted, groundTruth
}

// persist writes the shadow comparison to the database.
func (r *Runner) persist(ctx context.Context, result *Result) error {
	const sql = `
		INSERT INTO shadow_results
			(shadow_label, slot, production_score, shadow_score, adjusted_rand_index, variation_of_info, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, sql,
		result.ShadowLabel,
		result.Slot,
		result.ProductionScore,
		result.ShadowScore,
		result.AdjustedRandIndex,
		result.VariationOfInfo,
		result.CreatedAt,
	)
	return err
}
