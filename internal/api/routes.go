package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crowdship/poba-engine/internal/db"
	"github.com/crowdship/poba-engine/internal/escrow"
	"github.com/crowdship/poba-engine/internal/filter"
	"github.com/crowdship/poba-engine/internal/ledger"
	"github.com/crowdship/poba-engine/internal/market"
	"github.com/crowdship/poba-engine/internal/shadow"
	"github.com/crowdship/poba-engine/pkg/models"
)

// APIHandler wires the ledger, escrow, and market-index components to the
// HTTP surface consumed by the worker (C5) and by market participants.
type APIHandler struct {
	chain    *ledger.Chain
	escrow   *escrow.Chain
	market   *market.Index
	wsHub    *Hub
	dbStore  *db.Store
}

// SetupRouter builds the gin engine exposing the backend surface described
// in the external interfaces: the worker-facing /poba/* endpoints, REST
// wrappers over the escrow lifecycle, and the WebSocket event stream.
func SetupRouter(chain *ledger.Chain, esc *escrow.Chain, idx *market.Index, wsHub *Hub, dbStore *db.Store) *gin.Engine {
	r := gin.Default()

	// Enable CORS, configurable via ALLOWED_ORIGINS (comma-separated, or "*").
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{chain: chain, escrow: esc, market: idx, wsHub: wsHub, dbStore: dbStore}

	// ── Public endpoints (no auth) — the worker polls these every tick ──
	pub := r.Group("/poba")
	{
		pub.GET("/requests-open", handler.handleRequestsOpen)
		pub.GET("/offers-active", handler.handleOffersActive)
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
		pub.GET("/events", handler.handleRecentEvents)
	}

	// ── Protected endpoints (require bearer token if API_AUTH_TOKEN set) ──
	auth := r.Group("/poba")
	auth.Use(AuthMiddleware())
	auth.Use(NewRateLimiter(30, 5).Middleware())
	{
		auth.POST("/submit-proposal", handler.handleSubmitProposal)
		auth.POST("/finalize-slot", handler.handleFinalizeSlot)
		auth.POST("/build-proposal", handler.handleBuildProposal)
		auth.POST("/shadow-compare", handler.handleShadowCompare)

		auth.POST("/requests", handler.handleIndexRequest)
		auth.POST("/offers", handler.handleIndexOffer)
		auth.DELETE("/requests/:uuid", handler.handleRemoveRequest)
		auth.DELETE("/offers/:uuid", handler.handleRemoveOffer)

		esc := auth.Group("/escrow")
		{
			esc.POST("", handler.handleCreateEscrow)
			esc.GET("/:id", handler.handleGetEscrow)
			esc.POST("/:id/pickup", handler.handleMarkPickedUp)
			esc.POST("/:id/delivered", handler.handleMarkDelivered)
			esc.POST("/:id/confirm", handler.handleConfirmReceived)
			esc.POST("/:id/timeout", handler.handleForceTimeoutRelease)
			esc.POST("/release", handler.handleReleaseEscrow)
		}
	}

	return r
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":              "operational",
		"last_finalized_slot": h.chain.LastFinalizedSlot(),
		"db_connected":        h.dbStore != nil,
	})
}

func (h *APIHandler) handleRequestsOpen(c *gin.Context) {
	c.JSON(http.StatusOK, h.market.OpenRequests())
}

func (h *APIHandler) handleOffersActive(c *gin.Context) {
	c.JSON(http.StatusOK, h.market.ActiveOffers())
}

func (h *APIHandler) handleIndexRequest(c *gin.Context) {
	var body struct {
		Owner string `json:"owner"`
		models.Request
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.market.IndexRequest(body.Owner, body.Request); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, body.Request)
}

func (h *APIHandler) handleIndexOffer(c *gin.Context) {
	var body struct {
		Courier string `json:"courier"`
		models.Offer
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.market.IndexOffer(body.Courier, body.Offer); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, body.Offer)
}

func (h *APIHandler) handleRemoveRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}
	if err := h.market.RemoveRequest(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *APIHandler) handleRemoveOffer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}
	if err := h.market.RemoveOffer(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *APIHandler) handleSubmitProposal(c *gin.Context) {
	proposerID := c.Query("proposer_id")

	var body struct {
		Slot       uint64         `json:"slot"`
		TotalScore int64          `json:"total_score"`
		Matches    []models.Match `json:"matches"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	evt, err := h.chain.SubmitProposal(models.Proposal{
		Slot:       body.Slot,
		TotalScore: body.TotalScore,
		Matches:    body.Matches,
		Proposer:   proposerID,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	h.wsHub.BroadcastEvent(models.Event{Type: evt.Type, Payload: evt.Payload})
	if h.dbStore != nil {
		h.dbStore.RecordEvent(c.Request.Context(), string(evt.Type), evt.Payload)
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

func (h *APIHandler) handleFinalizeSlot(c *gin.Context) {
	var body struct {
		Slot uint64 `json:"slot"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	evt, err := h.chain.FinalizeSlot(body.Slot)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	h.wsHub.BroadcastEvent(models.Event{Type: evt.Type, Payload: evt.Payload})
	finalized, _ := h.chain.FinalizedProposal(body.Slot)
	if h.dbStore != nil {
		h.dbStore.RecordEvent(c.Request.Context(), string(evt.Type), evt.Payload)
		h.dbStore.RecordFinalizedSlot(c.Request.Context(), body.Slot, finalized.Proposer, finalized.TotalScore, len(finalized.Matches))
	}
	c.JSON(http.StatusOK, finalized)
}

// handleRecentEvents serves the dashboard's activity feed from the durable
// audit mirror; unavailable (empty) when no database is configured.
func (h *APIHandler) handleRecentEvents(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusOK, []db.EventRow{})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := h.dbStore.RecentEvents(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

// handleShadowCompare trials an experimental skip-cost/base-score tuning
// against filter.DefaultParams over the current open market snapshot,
// without ever submitting the shadow solve's output to the proposal ledger.
func (h *APIHandler) handleShadowCompare(c *gin.Context) {
	var body struct {
		Slot            uint64 `json:"slot"`
		ShadowLabel     string `json:"shadow_label"`
		ShadowSkipCost  *int64 `json:"shadow_skip_cost"`
		ShadowBaseScore *int64 `json:"shadow_base_score"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if body.ShadowLabel == "" {
		body.ShadowLabel = "adhoc"
	}

	production := filter.DefaultParams()
	shadowParams := filter.DefaultParams()
	if body.ShadowSkipCost != nil {
		shadowParams.SkipCost = *body.ShadowSkipCost
	}
	if body.ShadowBaseScore != nil {
		shadowParams.BaseScore = *body.ShadowBaseScore
	}

	var pool *pgxpool.Pool
	if h.dbStore != nil {
		pool = h.dbStore.GetPool()
	}

	runner := shadow.NewRunner(pool, body.ShadowLabel, production, shadowParams)
	result, err := runner.RunComparison(c.Request.Context(), body.Slot, h.market.OpenRequests(), h.market.ActiveOffers())
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleBuildProposal is the optional server-side solver path named in the
// external interfaces; it duplicates the worker's own local solve and may
// safely be left unused when every node solves locally.
func (h *APIHandler) handleBuildProposal(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{
		"error": "server-side build-proposal is optional and not enabled on this node; solve locally instead",
	})
}

func (h *APIHandler) handleCreateEscrow(c *gin.Context) {
	var body struct {
		RequestUUID uuid.UUID `json:"request_uuid"`
		OfferUUID   uuid.UUID `json:"offer_uuid"`
		Driver      string    `json:"driver"`
		Payer       string    `json:"payer"`
		Amount      uint64    `json:"amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	e, evt, err := h.escrow.CreateEscrow(body.RequestUUID, body.OfferUUID, body.Driver, body.Payer, body.Amount, time.Now())
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	h.wsHub.BroadcastEvent(models.Event{Type: evt.Type, Payload: evt.Payload})
	if h.dbStore != nil {
		h.dbStore.RecordEvent(c.Request.Context(), string(evt.Type), evt.Payload)
	}
	c.JSON(http.StatusCreated, e)
}

func (h *APIHandler) handleGetEscrow(c *gin.Context) {
	id, err := parseEscrowID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e, ok := h.escrow.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "escrow not found"})
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *APIHandler) handleMarkPickedUp(c *gin.Context) {
	h.escrowTransition(c, func(id uint64, caller string) (interface{}, []escrow.Event, error) {
		e, evt, err := h.escrow.MarkPickedUp(id, caller)
		return e, []escrow.Event{evt}, err
	})
}

func (h *APIHandler) handleMarkDelivered(c *gin.Context) {
	h.escrowTransition(c, func(id uint64, caller string) (interface{}, []escrow.Event, error) {
		e, evt, err := h.escrow.MarkDelivered(id, caller)
		return e, []escrow.Event{evt}, err
	})
}

func (h *APIHandler) handleConfirmReceived(c *gin.Context) {
	h.escrowTransition(c, func(id uint64, caller string) (interface{}, []escrow.Event, error) {
		e, events, err := h.escrow.ConfirmReceived(id, caller)
		return e, events, err
	})
}

func (h *APIHandler) handleForceTimeoutRelease(c *gin.Context) {
	id, err := parseEscrowID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e, events, err := h.escrow.ForceTimeoutRelease(id, time.Now())
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	h.broadcastEvents(c, events)
	c.JSON(http.StatusOK, e)
}

func (h *APIHandler) handleReleaseEscrow(c *gin.Context) {
	var body struct {
		RequestUUID uuid.UUID `json:"request_uuid"`
		OfferUUID   uuid.UUID `json:"offer_uuid"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	e, events, err := h.escrow.ReleaseEscrow(body.RequestUUID, body.OfferUUID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	h.broadcastEvents(c, events)
	c.JSON(http.StatusOK, e)
}

func (h *APIHandler) escrowTransition(c *gin.Context, do func(id uint64, caller string) (interface{}, []escrow.Event, error)) {
	id, err := parseEscrowID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var body struct {
		Caller string `json:"caller"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, events, err := do(id, body.Caller)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	h.broadcastEvents(c, events)
	c.JSON(http.StatusOK, result)
}

func (h *APIHandler) broadcastEvents(c *gin.Context, events []escrow.Event) {
	for _, evt := range events {
		h.wsHub.BroadcastEvent(models.Event{Type: evt.Type, Payload: evt.Payload})
		if h.dbStore != nil {
			h.dbStore.RecordEvent(c.Request.Context(), string(evt.Type), evt.Payload)
		}
	}
}

func parseEscrowID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
