package service

import (
	"context"

	"github.com/athlink/sponsorledger/internal/observability"
	"go.uber.org/zap"
)

// ReconciliationService verifies ledger integrity invariants and refreshes
// system-wide gauges. It is read-only.
type ReconciliationService struct {
	store Store
}

func NewReconciliationService(store Store) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// Run checks that no athlete's non-failed withdrawals exceed their completed
// inbound transfers, and republishes system totals.
func (s *ReconciliationService) Run(ctx context.Context) error {
	summaries, err := s.store.LedgerSummaries(ctx)
	if err != nil {
		return err
	}

	balanced := true
	for _, sum := range summaries {
		if sum.WithdrawnMicros > sum.ReceivedMicros {
			balanced = false
			observability.IncrementLedgerImbalance()
			zap.L().Error("CRITICAL: athlete overdrawn",
				zap.String("athlete_id", sum.AthleteID.String()),
				zap.Int64("received_micros", sum.ReceivedMicros),
				zap.Int64("withdrawn_micros", sum.WithdrawnMicros),
			)
		}
	}

	volume, count, err := s.store.CompletedTotals(ctx)
	if err != nil {
		return err
	}
	observability.SetSystemTotals(volume, count)

	if balanced {
		zap.L().Info("ledger reconciled",
			zap.Int64("completed_volume_micros", volume),
			zap.Int64("completed_transfers", count),
		)
	}
	return nil
}
