package main

import (
	"log"

	"github.com/crowdship/poba-engine/internal/api"
	"github.com/crowdship/poba-engine/internal/config"
	"github.com/crowdship/poba-engine/internal/db"
	"github.com/crowdship/poba-engine/internal/escrow"
	"github.com/crowdship/poba-engine/internal/ledger"
	"github.com/crowdship/poba-engine/internal/market"
)

func main() {
	log.Println("Starting PoBA Engine backend (market index + proposal/escrow ledgers)...")

	cfg := config.Load()

	var dbStore *db.Store
	if cfg.DatabaseURL != "" {
		conn, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL, continuing without persisting market history. Error: %v", err)
		} else {
			defer conn.Close()
			if err := conn.InitSchema(); err != nil {
				log.Printf("Warning: DB schema init failed: %v", err)
			}
			dbStore = conn
		}
	} else {
		log.Println("DATABASE_URL not set — running with no durable event history")
	}

	wsHub := api.NewHub()
	go wsHub.Run()

	chain := ledger.NewChain()
	esc := escrow.NewChain(cfg.ConfirmationTimeout)
	idx := market.NewIndex()

	r := api.SetupRouter(chain, esc, idx, wsHub, dbStore)

	log.Printf("Backend running on :%s\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
