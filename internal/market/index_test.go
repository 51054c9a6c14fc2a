package market

import (
	"testing"

	"github.com/google/uuid"

	"github.com/crowdship/poba-engine/pkg/models"
)

func TestIndexRequest_RejectsDuplicateUUID(t *testing.T) {
	idx := NewIndex()
	req := models.Request{RequestUUID: uuid.New(), Kind: models.KindPackage}

	if err := idx.IndexRequest("alice", req); err != nil {
		t.Fatalf("unexpected error on first index: %v", err)
	}
	if err := idx.IndexRequest("alice", req); err != ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestRemoveRequest_NotFound(t *testing.T) {
	idx := NewIndex()
	if err := idx.RemoveRequest(uuid.New()); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenRequestsAndActiveOffers_ReflectCurrentState(t *testing.T) {
	idx := NewIndex()
	req := models.Request{RequestUUID: uuid.New(), Kind: models.KindPackage}
	off := models.Offer{OfferUUID: uuid.New(), TypesMask: 1}

	if err := idx.IndexRequest("alice", req); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexOffer("bob", off); err != nil {
		t.Fatal(err)
	}

	if got := idx.OpenRequests(); len(got) != 1 || got[0].RequestUUID != req.RequestUUID {
		t.Errorf("unexpected open requests: %+v", got)
	}
	if got := idx.ActiveOffers(); len(got) != 1 || got[0].OfferUUID != off.OfferUUID {
		t.Errorf("unexpected active offers: %+v", got)
	}

	if err := idx.RemoveRequest(req.RequestUUID); err != nil {
		t.Fatal(err)
	}
	if got := idx.OpenRequests(); len(got) != 0 {
		t.Errorf("expected no open requests after removal, got %+v", got)
	}
}
