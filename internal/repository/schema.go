package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the ledger tables if they do not exist yet.
// The external_ref uniqueness constraint is what makes transfer admission a
// single atomic compare-and-insert.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id UUID PRIMARY KEY,
			role TEXT NOT NULL,
			display_name TEXT NOT NULL,
			payout_address TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS transfers (
			id UUID PRIMARY KEY,
			sponsor_id UUID NOT NULL REFERENCES accounts(id),
			athlete_id UUID NOT NULL REFERENCES accounts(id),
			amount_micros BIGINT NOT NULL CHECK (amount_micros > 0),
			external_ref TEXT,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS transfers_external_ref_key
			ON transfers (external_ref) WHERE external_ref IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS transfers_sponsor_idx ON transfers (sponsor_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS transfers_athlete_idx ON transfers (athlete_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS withdrawals (
			id UUID PRIMARY KEY,
			athlete_id UUID NOT NULL REFERENCES accounts(id),
			amount_micros BIGINT NOT NULL CHECK (amount_micros > 0),
			address TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			gateway_ref TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS withdrawals_status_idx ON withdrawals (status, created_at)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id BIGSERIAL PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id UUID NOT NULL,
			actor_id UUID,
			action TEXT NOT NULL,
			prev_state TEXT,
			next_state TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
