package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/crowdship/poba-engine/internal/chainhead"
	"github.com/crowdship/poba-engine/internal/config"
	"github.com/crowdship/poba-engine/internal/marketclient"
	"github.com/crowdship/poba-engine/internal/worker"
)

func main() {
	log.Println("Starting PoBA proposer/finalizer worker...")

	cfg := config.Load()

	chainCfg := chainhead.Config{
		Host: cfg.ChainHeadHost,
		User: cfg.ChainHeadUser,
		Pass: cfg.ChainHeadPass,
	}
	chain, err := chainhead.NewClient(chainCfg)
	if err != nil {
		log.Fatalf("Failed to connect to host ledger: %v", err)
	}
	defer chain.Shutdown()

	market := marketclient.New(cfg.Worker.BackendURL)

	w := worker.New(cfg.Worker, market, chain)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w.Run(ctx)
}
