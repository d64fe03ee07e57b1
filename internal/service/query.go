package service

import (
	"context"
	"errors"

	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QueryService is the single point through which callers read transfer
// history and aggregates. Caller identity and role come from the
// authenticated session; a caller cannot widen its own view by supplying a
// different role, because the visibility predicate is applied at the data
// layer, not filtered client-side.
type QueryService struct {
	ledger   LedgerStore
	balances *BalanceService
	accounts AccountStore
}

func NewQueryService(ledger LedgerStore, balances *BalanceService, accounts AccountStore) *QueryService {
	return &QueryService{ledger: ledger, balances: balances, accounts: accounts}
}

// ListTransactions returns the whole ledger for admins and only the caller's
// own transfers (as sponsor or athlete) for everyone else.
func (s *QueryService) ListTransactions(ctx context.Context, callerID uuid.UUID, callerRole string, limit, offset int) ([]models.Transfer, error) {
	filter := models.TransferFilter{Limit: limit, Offset: offset}
	if callerRole != domain.RoleAdmin {
		id := callerID
		filter.ParticipantID = &id
	}
	return s.ledger.ListTransfers(ctx, filter)
}

// GetBalance answers a role-scoped balance read: an athlete may read its own
// derived balance, a sponsor its own sent total, and an admin either figure
// for any account. Every other combination is denied.
func (s *QueryService) GetBalance(ctx context.Context, callerID uuid.UUID, callerRole string, targetID uuid.UUID) (decimal.Decimal, error) {
	if callerRole != domain.RoleAdmin && callerID != targetID {
		return decimal.Zero, domain.ErrNotAuthorized
	}

	target, err := s.accounts.GetAccount(ctx, targetID)
	if err != nil {
		return decimal.Zero, accountReadErr(err)
	}
	switch target.Role {
	case domain.RoleAthlete:
		if callerRole != domain.RoleAdmin && callerRole != domain.RoleAthlete {
			return decimal.Zero, domain.ErrNotAuthorized
		}
		return s.balances.BalanceOf(ctx, targetID)
	case domain.RoleSponsor:
		if callerRole != domain.RoleAdmin && callerRole != domain.RoleSponsor {
			return decimal.Zero, domain.ErrNotAuthorized
		}
		return s.balances.TotalSentBy(ctx, targetID)
	default:
		return decimal.Zero, domain.ErrInvalidAccount
	}
}

// GetAvailableBalance is GetBalance's athlete-only counterpart including the
// withdrawal side of the ledger.
func (s *QueryService) GetAvailableBalance(ctx context.Context, callerID uuid.UUID, callerRole string, targetID uuid.UUID) (decimal.Decimal, error) {
	if callerRole != domain.RoleAdmin && callerID != targetID {
		return decimal.Zero, domain.ErrNotAuthorized
	}
	target, err := s.accounts.GetAccount(ctx, targetID)
	if err != nil {
		return decimal.Zero, accountReadErr(err)
	}
	if target.Role != domain.RoleAthlete {
		return decimal.Zero, domain.ErrInvalidAccount
	}
	return s.balances.AvailableBalanceOf(ctx, targetID)
}

// SponsorStats bundles the sponsor dashboard figures.
type SponsorStats struct {
	TotalSent            decimal.Decimal
	UniqueCounterparties int64
}

// GetSponsorStats returns a sponsor's sent total and distinct supported
// athlete count; restricted to the sponsor itself or an admin.
func (s *QueryService) GetSponsorStats(ctx context.Context, callerID uuid.UUID, callerRole string, sponsorID uuid.UUID) (*SponsorStats, error) {
	if callerRole != domain.RoleAdmin && callerID != sponsorID {
		return nil, domain.ErrNotAuthorized
	}
	target, err := s.accounts.GetAccount(ctx, sponsorID)
	if err != nil {
		return nil, accountReadErr(err)
	}
	if target.Role != domain.RoleSponsor {
		return nil, domain.ErrInvalidAccount
	}

	total, err := s.balances.TotalSentBy(ctx, sponsorID)
	if err != nil {
		return nil, err
	}
	count, err := s.balances.UniqueCounterpartiesOf(ctx, sponsorID)
	if err != nil {
		return nil, err
	}
	return &SponsorStats{TotalSent: total, UniqueCounterparties: count}, nil
}

// GetSystemTotals is admin-only.
func (s *QueryService) GetSystemTotals(ctx context.Context, callerRole string) (*models.SystemTotals, error) {
	if callerRole != domain.RoleAdmin {
		return nil, domain.ErrNotAuthorized
	}
	return s.balances.SystemTotals(ctx)
}

func accountReadErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidAccount
	}
	return err
}
