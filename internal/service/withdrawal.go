package service

import (
	"context"

	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/gateway"
	"github.com/athlink/sponsorledger/internal/models"
	"github.com/athlink/sponsorledger/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WithdrawalService records outbound settlement entries for athletes.
// Withdrawals are their own signed side of the ledger: BalanceOf stays the
// pure sum of completed inbound transfers, and availability is derived by
// subtracting non-failed withdrawals.
type WithdrawalService struct {
	store   Store
	gateway gateway.Gateway
	audit   *AuditService
}

func NewWithdrawalService(store Store, gw gateway.Gateway) *WithdrawalService {
	return &WithdrawalService{
		store:   store,
		gateway: gw,
		audit:   NewAuditService(store),
	}
}

// Request admits a withdrawal in PENDING state. It requires an athlete
// account with a bound payout address; the availability check happens inside
// AppendWithdrawal, atomically with the insert, so two concurrent requests
// cannot both reserve the same funds. Settlement happens asynchronously in
// ProcessPending.
func (s *WithdrawalService) Request(ctx context.Context, athleteID uuid.UUID, amountMicros int64) (*models.Withdrawal, error) {
	account, err := s.store.GetAccount(ctx, athleteID)
	if err != nil {
		return nil, accountReadErr(err)
	}
	if account.Role != domain.RoleAthlete {
		return nil, domain.ErrInvalidAccount
	}
	if amountMicros <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if account.PayoutAddress == nil || *account.PayoutAddress == "" {
		return nil, domain.ErrNoPayoutAddress
	}

	w := &models.Withdrawal{
		ID:           uuid.New(),
		AthleteID:    athleteID,
		AmountMicros: amountMicros,
		Address:      *account.PayoutAddress,
		Status:       domain.WithdrawalStatusPending,
	}
	if err := s.store.AppendWithdrawal(ctx, w); err != nil {
		return nil, err
	}
	observability.IncrementWithdrawalTransition(domain.WithdrawalStatusPending)
	if err := s.audit.Write(ctx, "withdrawal", w.ID, &athleteID, "withdrawal_requested", "", w.Status); err != nil {
		zap.L().Warn("audit write failed", zap.Error(err), zap.String("withdrawal_id", w.ID.String()))
	}
	return w, nil
}

// List returns an athlete's own withdrawals, or every withdrawal for admins.
func (s *WithdrawalService) List(ctx context.Context, callerID uuid.UUID, callerRole string) ([]models.Withdrawal, error) {
	switch callerRole {
	case domain.RoleAdmin:
		return s.store.ListWithdrawals(ctx, nil)
	case domain.RoleAthlete:
		id := callerID
		return s.store.ListWithdrawals(ctx, &id)
	default:
		return nil, domain.ErrNotAuthorized
	}
}

// ProcessPending claims a batch of PENDING withdrawals and settles each one
// through the gateway. A gateway failure resolves the withdrawal FAILED,
// which releases the reserved funds back into the athlete's availability.
func (s *WithdrawalService) ProcessPending(ctx context.Context, batchSize int32) error {
	claimed, err := s.store.ClaimPendingWithdrawals(ctx, batchSize)
	if err != nil {
		return err
	}

	for _, w := range claimed {
		observability.IncrementWithdrawalTransition(domain.WithdrawalStatusProcessing)

		ref, sendErr := s.gateway.SendPayout(ctx, w.Address, w.AmountMicros)
		status := domain.WithdrawalStatusCompleted
		var gatewayRef *string
		if sendErr != nil {
			status = domain.WithdrawalStatusFailed
			zap.L().Warn("withdrawal settlement failed",
				zap.Error(sendErr),
				zap.String("withdrawal_id", w.ID.String()),
			)
		} else {
			gatewayRef = &ref
		}

		resolved, err := s.store.ResolveWithdrawal(ctx, w.ID, status, gatewayRef)
		if err != nil {
			zap.L().Error("withdrawal resolution failed", zap.Error(err), zap.String("withdrawal_id", w.ID.String()))
			continue
		}
		observability.IncrementWithdrawalTransition(resolved.Status)
		if err := s.audit.Write(ctx, "withdrawal", w.ID, nil, "withdrawal_settled", domain.WithdrawalStatusProcessing, resolved.Status); err != nil {
			zap.L().Warn("audit write failed", zap.Error(err), zap.String("withdrawal_id", w.ID.String()))
		}
	}
	return nil
}
