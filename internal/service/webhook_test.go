package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPayload(key string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSettlementWebhookSignature(t *testing.T) {
	store := repository.NewMemStore()
	transfers := NewTransferService(store, store)
	svc := NewWebhookService(transfers, "hook-key", false)
	ctx := context.Background()

	sponsor := seedAccount(t, store, domain.RoleSponsor, "acme")
	athlete := seedAccount(t, store, domain.RoleAthlete, "runner")

	payload, err := json.Marshal(SettlementWebhookPayload{
		SponsorID:    sponsor.ID.String(),
		AthleteID:    athlete.ID.String(),
		AmountMicros: 3_000_000,
		Reference:    "net-001",
	})
	require.NoError(t, err)

	_, err = svc.HandleSettlementWebhook(ctx, payload, "")
	require.ErrorIs(t, err, ErrInvalidSignature)

	_, err = svc.HandleSettlementWebhook(ctx, payload, signPayload("wrong-key", payload))
	require.ErrorIs(t, err, ErrInvalidSignature)

	resp, err := svc.HandleSettlementWebhook(ctx, payload, signPayload("hook-key", payload))
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCompleted, resp.Status)

	// The sha256= prefix variant is accepted too.
	resp2, err := svc.HandleSettlementWebhook(ctx, payload, "sha256="+signPayload("hook-key", payload))
	require.NoError(t, err)
	assert.Equal(t, resp.TransferID, resp2.TransferID)
}

func TestSettlementWebhookRedelivery(t *testing.T) {
	store := repository.NewMemStore()
	transfers := NewTransferService(store, store)
	svc := NewWebhookService(transfers, "", true)
	ctx := context.Background()

	sponsor := seedAccount(t, store, domain.RoleSponsor, "acme")
	athlete := seedAccount(t, store, domain.RoleAthlete, "runner")

	payload, err := json.Marshal(SettlementWebhookPayload{
		SponsorID:    sponsor.ID.String(),
		AthleteID:    athlete.ID.String(),
		AmountMicros: 3_000_000,
		Reference:    "net-002",
	})
	require.NoError(t, err)

	first, err := svc.HandleSettlementWebhook(ctx, payload, "")
	require.NoError(t, err)
	second, err := svc.HandleSettlementWebhook(ctx, payload, "")
	require.NoError(t, err)
	assert.Equal(t, first.TransferID, second.TransferID)

	sum, err := store.SumCompletedToAthlete(ctx, athlete.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3_000_000), sum)
}

func TestSettlementWebhookRejectsBadPayload(t *testing.T) {
	store := repository.NewMemStore()
	transfers := NewTransferService(store, store)
	svc := NewWebhookService(transfers, "", true)
	ctx := context.Background()

	sponsor := seedAccount(t, store, domain.RoleSponsor, "acme")
	athlete := seedAccount(t, store, domain.RoleAthlete, "runner")

	cases := []struct {
		name    string
		payload SettlementWebhookPayload
	}{
		{"missing_reference", SettlementWebhookPayload{SponsorID: sponsor.ID.String(), AthleteID: athlete.ID.String(), AmountMicros: 1}},
		{"bad_sponsor", SettlementWebhookPayload{SponsorID: "nope", AthleteID: athlete.ID.String(), AmountMicros: 1, Reference: "r1"}},
		{"bad_athlete", SettlementWebhookPayload{SponsorID: sponsor.ID.String(), AthleteID: "nope", AmountMicros: 1, Reference: "r2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := json.Marshal(tc.payload)
			require.NoError(t, err)
			_, err = svc.HandleSettlementWebhook(ctx, payload, "")
			require.Error(t, err)
		})
	}

	// Non-positive amounts are rejected by the admission path.
	payload, err := json.Marshal(SettlementWebhookPayload{
		SponsorID: sponsor.ID.String(), AthleteID: athlete.ID.String(), AmountMicros: 0, Reference: "r3",
	})
	require.NoError(t, err)
	_, err = svc.HandleSettlementWebhook(ctx, payload, "")
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}
