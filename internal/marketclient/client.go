// Package marketclient is the worker's HTTP client for the backend-fronted
// PoBA market and ledger endpoints (§6): pulling open requests/offers and
// relaying submit_proposal/finalize_slot calls.
//
// Grounded in the teacher's internal/bitcoin.Client.ScanTxOutset: a direct
// net/http client with an explicit timeout, manual JSON marshal/unmarshal,
// rather than pulling in a new HTTP client dependency the teacher never used.
package marketclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crowdship/poba-engine/pkg/models"
)

// Client talks to the backend's /poba/* HTTP endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a marketclient bound to baseURL, with a 10-second timeout on
// every request.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// OpenRequests fetches GET /poba/requests-open.
func (c *Client) OpenRequests() ([]models.Request, error) {
	var out []models.Request
	if err := c.getJSON("/poba/requests-open", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveOffers fetches GET /poba/offers-active.
func (c *Client) ActiveOffers() ([]models.Offer, error) {
	var out []models.Offer
	if err := c.getJSON("/poba/offers-active", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitProposalRequest is the wire body for POST /poba/submit-proposal.
type SubmitProposalRequest struct {
	Slot       uint64         `json:"slot"`
	TotalScore int64          `json:"total_score"`
	Matches    []models.Match `json:"matches"`
}

// SubmitProposal relays a submit_proposal call with the given proposer_id.
func (c *Client) SubmitProposal(proposerID string, body SubmitProposalRequest) error {
	url := fmt.Sprintf("%s/poba/submit-proposal?proposer_id=%s", c.baseURL, proposerID)
	return c.postJSON(url, body, nil)
}

// FinalizeSlotRequest is the wire body for POST /poba/finalize-slot.
type FinalizeSlotRequest struct {
	Slot uint64 `json:"slot"`
}

// FinalizeSlot relays a finalize_slot call with the given proposer_id.
func (c *Client) FinalizeSlot(proposerID string, slot uint64) error {
	url := fmt.Sprintf("%s/poba/finalize-slot?proposer_id=%s", c.baseURL, proposerID)
	return c.postJSON(url, FinalizeSlotRequest{Slot: slot}, nil)
}

func (c *Client) getJSON(path string, out interface{}) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("marketclient: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("marketclient: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("marketclient: GET %s: HTTP %d: %s", path, resp.StatusCode, string(body))
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *Client) postJSON(url string, in interface{}, out interface{}) error {
	reqBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marketclient: marshal request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("marketclient: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("marketclient: POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("marketclient: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("marketclient: POST %s: HTTP %d: %s", url, resp.StatusCode, string(body))
	}
	if out != nil && len(body) > 0 {
		return json.Unmarshal(body, out)
	}
	return nil
}
