package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a registered participant: an athlete, a sponsor, or an admin.
// Role is immutable after creation; PayoutAddress may be rebound wholesale
// (last write wins, no history kept).
type Account struct {
	ID            uuid.UUID `json:"id"`
	Role          string    `json:"role"`
	DisplayName   string    `json:"display_name"`
	PayoutAddress *string   `json:"payout_address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Transfer is one attempted or completed movement of funds from a sponsor to
// an athlete. ExternalRef, when set, is unique across all transfers and makes
// admission idempotent. All fields except Status are immutable after append;
// Status only moves PENDING -> COMPLETED or PENDING -> FAILED, once.
type Transfer struct {
	ID           uuid.UUID `json:"id"`
	SponsorID    uuid.UUID `json:"sponsor_id"`
	AthleteID    uuid.UUID `json:"athlete_id"`
	AmountMicros int64     `json:"amount_micros"`
	ExternalRef  *string   `json:"external_ref,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Withdrawal is a signed ledger entry debiting an athlete's derived balance
// toward their bound payout address. It is settled asynchronously by the
// payout worker through the settlement gateway.
type Withdrawal struct {
	ID           uuid.UUID `json:"id"`
	AthleteID    uuid.UUID `json:"athlete_id"`
	AmountMicros int64     `json:"amount_micros"`
	Address      string    `json:"address"`
	Status       string    `json:"status"`
	GatewayRef   *string   `json:"gateway_ref,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AuditEntry is an immutable record of a state change performed on an entity.
type AuditEntry struct {
	ID         int64      `json:"id"`
	EntityType string     `json:"entity_type"`
	EntityID   uuid.UUID  `json:"entity_id"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	Action     string     `json:"action"`
	PrevState  string     `json:"prev_state,omitempty"`
	NextState  string     `json:"next_state,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// SystemTotals aggregates the whole ledger for the admin dashboard.
type SystemTotals struct {
	TotalVolumeMicros int64 `json:"total_volume_micros"`
	TotalTransactions int64 `json:"total_transactions"`
	TotalAccounts     int64 `json:"total_accounts"`
	TotalAthletes     int64 `json:"total_athletes"`
	TotalSponsors     int64 `json:"total_sponsors"`
}

// TransferFilter narrows a ledger listing. A nil ParticipantID returns the
// whole ledger; otherwise only transfers where the participant is the sponsor
// or the athlete are returned. Results are ordered created_at descending.
type TransferFilter struct {
	ParticipantID *uuid.UUID
	Limit         int
	Offset        int
}

// AthleteLedgerSummary pairs an athlete's inbound and outbound ledger sums.
// Used by reconciliation to detect availability going negative.
type AthleteLedgerSummary struct {
	AthleteID       uuid.UUID
	ReceivedMicros  int64
	WithdrawnMicros int64
}
