// Package config centralizes environment-variable configuration, expanding
// the teacher's two free functions (requireEnv, getEnvOrDefault in
// cmd/engine/main.go) into a typed struct covering every PoBA tunable plus
// the ambient HTTP/DB/chain-head settings.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/crowdship/poba-engine/internal/filter"
)

// Role is the worker's configured role: proposer or finalizer.
type Role string

const (
	RoleProposer  Role = "proposer"
	RoleFinalizer Role = "finalizer"
)

// Worker holds every setting that drives the proposer/finalizer loop.
type Worker struct {
	Role             Role
	ProposerID       string
	BackendURL       string
	FinalizeLagSlots uint64
	PollInterval     time.Duration
	Params           filter.Params
}

// Config is the full environment-derived configuration for one process.
type Config struct {
	Port                string
	DatabaseURL          string
	APIAuthToken         string
	AllowedOrigins       string
	ConfirmationTimeout  time.Duration

	ChainHeadHost string
	ChainHeadUser string
	ChainHeadPass string

	Worker Worker
}

// Load reads the full configuration from the environment: getEnvOrDefault
// and the typed env* helpers for settings with a default, plain os.Getenv
// for the secrets (API_AUTH_TOKEN, BTC_RPC_USER, BTC_RPC_PASS), which may be
// left empty. Load never exits the process for a missing variable.
func Load() Config {
	p := filter.DefaultParams()
	p.BaseScore = envI64("POBA_BASE_SCORE", p.BaseScore)
	p.AlphaPerKm = envF64("POBA_ALPHA_PER_KM", p.AlphaPerKm)
	p.BetaPerCent = envF64("POBA_BETA_PER_CENT", p.BetaPerCent)
	p.SkipCost = envI64("POBA_SKIP_COST", p.SkipCost)
	p.MaxStartKm = envF64("POBA_MAX_START_KM", 0)
	p.MaxEndKm = envF64("POBA_MAX_END_KM", 0)
	p.MaxTotalKm = envF64("POBA_MAX_TOTAL_KM", 0)
	p.RequireTimeOverlap = envBool("POBA_REQUIRE_TIME_OVERLAP", true)
	p.MinOverlapMs = int64(envF64("POBA_MIN_OVERLAP_SEC", 0) * 1000)
	p.EarlySlackMs = int64(envF64("POBA_EARLY_SLACK_SEC", 0) * 1000)
	p.LateSlackMs = int64(envF64("POBA_LATE_SLACK_SEC", 0) * 1000)

	return Config{
		Port:                getEnvOrDefault("PORT", "5339"),
		DatabaseURL:         getEnvOrDefault("DATABASE_URL", ""),
		APIAuthToken:        os.Getenv("API_AUTH_TOKEN"),
		AllowedOrigins:      getEnvOrDefault("ALLOWED_ORIGINS", "*"),
		ConfirmationTimeout: time.Duration(envI64("CONFIRMATION_TIMEOUT_BLOCKS", 600)) * time.Second,

		ChainHeadHost: getEnvOrDefault("BTC_RPC_HOST", "localhost:8332"),
		ChainHeadUser: os.Getenv("BTC_RPC_USER"),
		ChainHeadPass: os.Getenv("BTC_RPC_PASS"),

		Worker: Worker{
			Role:             Role(getEnvOrDefault("POBA_ROLE", string(RoleProposer))),
			ProposerID:       getEnvOrDefault("POBA_PROPOSER_ID", "node"),
			BackendURL:       getEnvOrDefault("BACKEND_URL", "http://localhost:5339"),
			FinalizeLagSlots: uint64(envI64("POBA_FINALIZE_LAG_SLOTS", 0)),
			PollInterval:     3 * time.Second,
			Params:           p,
		},
	}
}

// IsFinalizer reports whether this worker should also attempt finalize_slot.
func (w Worker) IsFinalizer() bool {
	return w.Role == RoleFinalizer
}

// RequireEnv reads a required environment variable and exits the process if
// it is not set, matching the teacher's requireEnv behavior for
// security-sensitive values.
func RequireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: required environment variable %s is not set", key)
	}
	return val
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envI64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envF64(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	switch val {
	case "0", "false", "False", "no", "No":
		return false
	default:
		return true
	}
}
