package service

import (
	"context"
	"testing"

	"github.com/athlink/sponsorledger/internal/models"
	"github.com/athlink/sponsorledger/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// seedAccount inserts an account directly into the store, bypassing the
// registry so tests can also create admin accounts.
func seedAccount(t *testing.T, store *repository.MemStore, role, name string) *models.Account {
	t.Helper()
	account := &models.Account{
		ID:          uuid.New(),
		Role:        role,
		DisplayName: name,
	}
	require.NoError(t, store.CreateAccount(context.Background(), account))
	return account
}

func seedAthleteWithAddress(t *testing.T, store *repository.MemStore, name, address string) *models.Account {
	t.Helper()
	account := seedAccount(t, store, "athlete", name)
	updated, err := store.UpdatePayoutAddress(context.Background(), account.ID, address)
	require.NoError(t, err)
	return updated
}

func strptr(s string) *string {
	return &s
}

func modelsFilterAll() models.TransferFilter {
	return models.TransferFilter{}
}

func transferWithRef(sponsorID, athleteID uuid.UUID, amountMicros int64, ref string) *models.Transfer {
	return &models.Transfer{
		ID:           uuid.New(),
		SponsorID:    sponsorID,
		AthleteID:    athleteID,
		AmountMicros: amountMicros,
		ExternalRef:  &ref,
		Status:       "COMPLETED",
	}
}

// stubGateway is a deterministic payout gateway for withdrawal tests.
type stubGateway struct {
	ref   string
	err   error
	calls int
}

func (g *stubGateway) SendPayout(ctx context.Context, address string, amountMicros int64) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.ref, nil
}
