package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidSignature = errors.New("invalid signature")

// WebhookService admits transfers reported by the settlement network. The
// network retries deliveries, so admission leans entirely on the transfer
// reference for idempotency.
type WebhookService struct {
	transfers *TransferService
	hmacKey   []byte
	skipSig   bool
}

func NewWebhookService(transfers *TransferService, hmacKey string, skipSignature bool) *WebhookService {
	return &WebhookService{
		transfers: transfers,
		hmacKey:   []byte(hmacKey),
		skipSig:   skipSignature,
	}
}

// SettlementWebhookPayload is the settlement network's notification of a
// completed sponsor-to-athlete payment.
type SettlementWebhookPayload struct {
	SponsorID    string `json:"sponsor_id"`
	AthleteID    string `json:"athlete_id"`
	AmountMicros int64  `json:"amount_micros"`
	Reference    string `json:"reference"`
}

// SettlementWebhookResponse acknowledges an admitted settlement.
type SettlementWebhookResponse struct {
	TransferID uuid.UUID `json:"transfer_id"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
}

// HandleSettlementWebhook verifies the HMAC signature and admits the reported
// transfer. Redelivery of the same reference replays the stored transfer.
func (s *WebhookService) HandleSettlementWebhook(ctx context.Context, payload []byte, signature string) (*SettlementWebhookResponse, error) {
	if !s.verifyHMAC(payload, signature) {
		return nil, ErrInvalidSignature
	}

	var settlement SettlementWebhookPayload
	if err := json.Unmarshal(payload, &settlement); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	settlement.Reference = strings.TrimSpace(settlement.Reference)
	if settlement.Reference == "" {
		return nil, errors.New("reference is required")
	}

	sponsorID, err := uuid.Parse(strings.TrimSpace(settlement.SponsorID))
	if err != nil {
		return nil, fmt.Errorf("invalid sponsor_id: %w", err)
	}
	athleteID, err := uuid.Parse(strings.TrimSpace(settlement.AthleteID))
	if err != nil {
		return nil, fmt.Errorf("invalid athlete_id: %w", err)
	}

	transfer, created, err := s.transfers.CreateTransfer(ctx, sponsorID, athleteID, settlement.AmountMicros, &settlement.Reference)
	if err != nil {
		return nil, err
	}

	message := "settlement admitted"
	if !created {
		message = "settlement already recorded"
	}
	return &SettlementWebhookResponse{
		TransferID: transfer.ID,
		Status:     transfer.Status,
		Message:    message,
	}, nil
}

func (s *WebhookService) verifyHMAC(payload []byte, signature string) bool {
	if s.skipSig {
		return true
	}
	if len(s.hmacKey) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, s.hmacKey)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(signature, "sha256=")))
}
