package worker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crowdship/poba-engine/internal/config"
	"github.com/crowdship/poba-engine/internal/filter"
	"github.com/crowdship/poba-engine/internal/marketclient"
	"github.com/crowdship/poba-engine/pkg/models"
	"github.com/google/uuid"
)

func TestWorker_MaybeFinalize_OnlyAdvancesOnSuccess(t *testing.T) {
	var finalizeCalls int
	var shouldFail bool

	mux := http.NewServeMux()
	mux.HandleFunc("/poba/finalize-slot", func(w http.ResponseWriter, r *http.Request) {
		finalizeCalls++
		if shouldFail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.Worker{
		Role:             config.RoleFinalizer,
		ProposerID:       "alice",
		BackendURL:       srv.URL,
		FinalizeLagSlots: 0,
		Params:           filter.DefaultParams(),
	}
	w := New(cfg, marketclient.New(srv.URL), nil)

	shouldFail = true
	w.maybeFinalize(10)
	if w.lastFinalizedLocally != 0 {
		t.Fatalf("expected lastFinalizedLocally to stay 0 after failed finalize, got %d", w.lastFinalizedLocally)
	}

	shouldFail = false
	w.maybeFinalize(10)
	if w.lastFinalizedLocally != 10 {
		t.Fatalf("expected lastFinalizedLocally=10 after successful finalize, got %d", w.lastFinalizedLocally)
	}

	// Re-attempting the same slot should not call finalize again.
	before := finalizeCalls
	w.maybeFinalize(10)
	if finalizeCalls != before {
		t.Errorf("expected no additional finalize call for an already-finalized slot")
	}
}

func TestWorker_FetchMarket(t *testing.T) {
	req := models.Request{RequestUUID: uuid.New(), Kind: models.KindPackage}
	off := models.Offer{OfferUUID: uuid.New(), TypesMask: 1}

	mux := http.NewServeMux()
	mux.HandleFunc("/poba/requests-open", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Request{req})
	})
	mux.HandleFunc("/poba/offers-active", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Offer{off})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.Worker{ProposerID: "alice", BackendURL: srv.URL, Params: filter.DefaultParams()}
	w := New(cfg, marketclient.New(srv.URL), nil)

	requests, offers, ok := w.fetchMarket()
	if !ok {
		t.Fatal("expected fetchMarket to succeed")
	}
	if len(requests) != 1 || requests[0].RequestUUID != req.RequestUUID {
		t.Errorf("unexpected requests: %+v", requests)
	}
	if len(offers) != 1 || offers[0].OfferUUID != off.OfferUUID {
		t.Errorf("unexpected offers: %+v", offers)
	}
}

func TestWorker_FetchMarket_BackendUnreachable(t *testing.T) {
	cfg := config.Worker{ProposerID: "alice", BackendURL: "http://127.0.0.1:1", Params: filter.DefaultParams()}
	w := New(cfg, marketclient.New("http://127.0.0.1:1"), nil)

	_, _, ok := w.fetchMarket()
	if ok {
		t.Fatal("expected fetchMarket to fail against an unreachable backend")
	}
}
