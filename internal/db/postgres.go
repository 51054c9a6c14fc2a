package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps the connection pool used for the append-only audit trail: every
// event the ledger and escrow chains emit is mirrored here so the market
// history survives process restarts even though the chains themselves are
// in-memory.
type Store struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for PoBA Engine")
	return &Store{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes the schema.sql file.
func (s *Store) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/db/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("PoBA schema initialized")
	return nil
}

// RecordEvent appends one ledger/escrow event to the audit trail. The
// payload is stored as JSONB; callers pass the same event.Type/Payload pair
// they just broadcast over the websocket hub, so the on-disk history and the
// live stream never drift apart.
func (s *Store) RecordEvent(ctx context.Context, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %v", err)
	}

	const sql = `
		INSERT INTO market_events (event_type, payload)
		VALUES ($1, $2);
	`
	_, err = s.pool.Exec(ctx, sql, eventType, body)
	if err != nil {
		return fmt.Errorf("failed to insert market_events: %v", err)
	}
	return nil
}

// RecordFinalizedSlot persists the winning proposal for a finalized slot,
// keyed by slot: a second insert for a slot already recorded is ignored
// (ON CONFLICT DO NOTHING) and the first row is kept.
func (s *Store) RecordFinalizedSlot(ctx context.Context, slot uint64, proposer string, totalScore int64, matchCount int) error {
	const sql = `
		INSERT INTO finalized_slots (slot, proposer, total_score, match_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slot) DO NOTHING;
	`
	_, err := s.pool.Exec(ctx, sql, slot, proposer, totalScore, matchCount)
	if err != nil {
		return fmt.Errorf("failed to insert finalized_slots: %v", err)
	}
	return nil
}

// EventRow is one row of recorded market history, returned in reverse
// chronological order by RecentEvents.
type EventRow struct {
	ID        int64           `json:"id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}

// RecentEvents returns the most recent audit rows, newest first, for the
// dashboard's activity feed.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]EventRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	const sql = `
		SELECT id, event_type, payload, created_at::text
		FROM market_events
		ORDER BY id DESC
		LIMIT $1;
	`
	rows, err := s.pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.ID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if events == nil {
		events = []EventRow{}
	}
	return events, nil
}

// GetPool exposes the connection pool for subsystems that need it directly.
func (s *Store) GetPool() *pgxpool.Pool {
	return s.pool
}
