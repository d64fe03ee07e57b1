package service

import (
	"context"
	"strings"

	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountService is the account registry: identity, role, and payout-address
// management. Roles are assigned exactly once at creation.
type AccountService struct {
	store AccountStore
	audit *AuditService
}

func NewAccountService(store AccountStore, audit *AuditService) *AccountService {
	return &AccountService{store: store, audit: audit}
}

func (s *AccountService) CreateAccount(ctx context.Context, displayName, role string) (*models.Account, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, domain.ErrInvalidAccount
	}
	if !domain.CreatableRole(role) {
		return nil, domain.ErrInvalidAccount
	}

	account := &models.Account{
		ID:          uuid.New(),
		Role:        role,
		DisplayName: displayName,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AccountService) Resolve(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.store.GetAccount(ctx, id)
}

func (s *AccountService) ListAthletes(ctx context.Context) ([]models.Account, error) {
	return s.store.ListAccountsByRole(ctx, domain.RoleAthlete)
}

// BindPayoutAddress overwrites the account's payout address wholesale.
// Last write wins and rebinding the same address is a no-op; address format
// validation is a boundary concern and not enforced here.
func (s *AccountService) BindPayoutAddress(ctx context.Context, id uuid.UUID, address string, actorID *uuid.UUID) (*models.Account, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, domain.ErrInvalidAccount
	}

	prev, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	prevAddr := ""
	if prev.PayoutAddress != nil {
		prevAddr = *prev.PayoutAddress
	}

	account, err := s.store.UpdatePayoutAddress(ctx, id, address)
	if err != nil {
		return nil, err
	}
	if err := s.audit.Write(ctx, "account", id, actorID, "payout_address_bound", prevAddr, address); err != nil {
		zap.L().Warn("audit write failed", zap.Error(err), zap.String("account_id", id.String()))
	}
	return account, nil
}
