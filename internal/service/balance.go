package service

import (
	"context"

	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceService derives read-only aggregates from the ledger. It never
// mutates state and holds no cached figures, so a balance read can never
// disagree with the transaction history that produced it. It is
// authorization-agnostic; role scoping lives in QueryService.
type BalanceService struct {
	ledger      LedgerStore
	withdrawals WithdrawalStore
	accounts    AccountStore
}

func NewBalanceService(ledger LedgerStore, withdrawals WithdrawalStore, accounts AccountStore) *BalanceService {
	return &BalanceService{ledger: ledger, withdrawals: withdrawals, accounts: accounts}
}

// BalanceOf is the sum of completed transfers received by the athlete.
// Monotonically non-decreasing; withdrawals are tracked separately and only
// affect AvailableBalanceOf.
func (s *BalanceService) BalanceOf(ctx context.Context, athleteID uuid.UUID) (decimal.Decimal, error) {
	sum, err := s.ledger.SumCompletedToAthlete(ctx, athleteID)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.ToDecimal(sum), nil
}

// AvailableBalanceOf is BalanceOf minus all non-failed withdrawals.
func (s *BalanceService) AvailableBalanceOf(ctx context.Context, athleteID uuid.UUID) (decimal.Decimal, error) {
	received, err := s.ledger.SumCompletedToAthlete(ctx, athleteID)
	if err != nil {
		return decimal.Zero, err
	}
	withdrawn, err := s.withdrawals.SumActiveWithdrawals(ctx, athleteID)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.ToDecimal(received - withdrawn), nil
}

// TotalSentBy is the sum of completed transfers sent by the sponsor.
func (s *BalanceService) TotalSentBy(ctx context.Context, sponsorID uuid.UUID) (decimal.Decimal, error) {
	sum, err := s.ledger.SumCompletedFromSponsor(ctx, sponsorID)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.ToDecimal(sum), nil
}

// UniqueCounterpartiesOf counts distinct athletes a sponsor has supported,
// across transfers of any status.
func (s *BalanceService) UniqueCounterpartiesOf(ctx context.Context, sponsorID uuid.UUID) (int64, error) {
	return s.ledger.CountDistinctAthletes(ctx, sponsorID)
}

// SystemTotals aggregates completed transfer volume and count, plus account
// counts by role for the admin dashboard.
func (s *BalanceService) SystemTotals(ctx context.Context) (*models.SystemTotals, error) {
	volume, count, err := s.ledger.CompletedTotals(ctx)
	if err != nil {
		return nil, err
	}
	roleCounts, err := s.accounts.CountAccountsByRole(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, n := range roleCounts {
		total += n
	}
	return &models.SystemTotals{
		TotalVolumeMicros: volume,
		TotalTransactions: count,
		TotalAccounts:     total,
		TotalAthletes:     roleCounts[domain.RoleAthlete],
		TotalSponsors:     roleCounts[domain.RoleSponsor],
	}, nil
}
