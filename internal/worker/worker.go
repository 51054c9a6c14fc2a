// Package worker implements the PoBA proposer/finalizer worker (C5): a
// single cooperative loop binding the Filter (C1) and Solver (C2) to the
// market and submitting the result to the Proposal Ledger (C3).
//
// Grounded in the teacher's internal/mempool.Poller.Run: a ticker-driven
// "for { select { ctx.Done / ticker.C } }" loop with per-iteration logging
// and graceful (never-fatal) handling of transport failures.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/crowdship/poba-engine/internal/chainhead"
	"github.com/crowdship/poba-engine/internal/config"
	"github.com/crowdship/poba-engine/internal/filter"
	"github.com/crowdship/poba-engine/internal/marketclient"
	"github.com/crowdship/poba-engine/internal/solver"
	"github.com/crowdship/poba-engine/pkg/models"
)

// Worker runs the Fetch -> Solve -> Submit -> Maybe-Finalize -> Sleep state
// machine described in the design notes.
type Worker struct {
	cfg    config.Worker
	market *marketclient.Client
	chain  *chainhead.Client

	// lastFinalizedLocally is the only mutable state the worker carries
	// across iterations, and it is single-writer by construction (this
	// goroutine alone advances it, and only on confirmed HTTP success).
	lastFinalizedLocally uint64
}

// New returns a Worker bound to a backend market client and a host-ledger
// chain-head client.
func New(cfg config.Worker, market *marketclient.Client, chain *chainhead.Client) *Worker {
	return &Worker{cfg: cfg, market: market, chain: chain}
}

// Run executes the loop until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("[Worker] started role=%s proposer_id=%s backend_url=%s", w.cfg.Role, w.cfg.ProposerID, w.cfg.BackendURL)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Worker] stopping")
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *Worker) tick() {
	requests, offers, ok := w.fetchMarket()
	if !ok {
		return
	}
	if len(requests) == 0 || len(offers) == 0 {
		return
	}

	slot, err := w.chain.CurrentSlot()
	if err != nil {
		log.Printf("[Worker] failed to read slot from host ledger: %v", err)
		return
	}
	log.Printf("[Worker] (role=%s, proposer_id=%s): using slot %d", w.cfg.Role, w.cfg.ProposerID, slot)

	tbl := filter.Build(requests, offers, w.cfg.Params)
	res, err := solver.Solve(requests, offers, tbl, w.cfg.Params)
	if err != nil {
		log.Printf("[Worker] solver error: %v", err)
		return
	}

	if len(res.Matches) == 0 {
		log.Printf("[Worker] (role=%s, proposer_id=%s): no matches for slot %d, debug=%+v, skipping submit",
			w.cfg.Role, w.cfg.ProposerID, slot, tbl.Debug)
	} else {
		err := w.market.SubmitProposal(w.cfg.ProposerID, marketclient.SubmitProposalRequest{
			Slot:       slot,
			TotalScore: res.TotalScore,
			Matches:    res.Matches,
		})
		if err != nil {
			log.Printf("[Worker] (proposer_id=%s): submit-proposal failed: %v", w.cfg.ProposerID, err)
		} else {
			log.Printf("[Worker] (role=%s, proposer_id=%s): submitted proposal for slot %d (total_score=%d, matches=%d)",
				w.cfg.Role, w.cfg.ProposerID, slot, res.TotalScore, len(res.Matches))
		}
	}

	if w.cfg.IsFinalizer() {
		w.maybeFinalize(slot)
	}
}

func (w *Worker) fetchMarket() ([]models.Request, []models.Offer, bool) {
	requests, err := w.market.OpenRequests()
	if err != nil {
		log.Printf("[Worker] backend not reachable for requests-open: %v", err)
		return nil, nil, false
	}
	offers, err := w.market.ActiveOffers()
	if err != nil {
		log.Printf("[Worker] backend not reachable for offers-active: %v", err)
		return nil, nil, false
	}
	return requests, offers, true
}

// maybeFinalize attempts finalize_slot for slot-lag_slots when that slot is
// strictly ahead of what this worker has finalized locally, and only
// advances lastFinalizedLocally on confirmed HTTP success — unlike the
// reference implementation this was ported from, which advanced it on any
// non-error response regardless of status.
func (w *Worker) maybeFinalize(slot uint64) {
	var finalizeSlot uint64
	if slot > w.cfg.FinalizeLagSlots {
		finalizeSlot = slot - w.cfg.FinalizeLagSlots
	}

	if finalizeSlot == 0 || finalizeSlot <= w.lastFinalizedLocally {
		return
	}

	log.Printf("[Worker] (finalizer, proposer_id=%s): attempting finalize-slot for slot %d (current_slot=%d, lag=%d)",
		w.cfg.ProposerID, finalizeSlot, slot, w.cfg.FinalizeLagSlots)

	if err := w.market.FinalizeSlot(w.cfg.ProposerID, finalizeSlot); err != nil {
		log.Printf("[Worker] (finalizer, proposer_id=%s): finalize-slot failed for slot %d: %v",
			w.cfg.ProposerID, finalizeSlot, err)
		return
	}

	w.lastFinalizedLocally = finalizeSlot
	log.Printf("[Worker] (finalizer, proposer_id=%s): finalize-slot OK for slot %d", w.cfg.ProposerID, finalizeSlot)
}
