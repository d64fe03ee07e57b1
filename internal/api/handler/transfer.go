package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/models"
	"github.com/athlink/sponsorledger/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TransferHandler struct {
	transfers *service.TransferService
	queries   *service.QueryService
}

func NewTransferHandler(transfers *service.TransferService, queries *service.QueryService) *TransferHandler {
	return &TransferHandler{transfers: transfers, queries: queries}
}

// CreateTransferRequest is the body for POST /v1/transfers. Amount is a
// decimal string with at most six fractional digits.
type CreateTransferRequest struct {
	AthleteID   string  `json:"athlete_id"`
	Amount      string  `json:"amount"`
	ExternalRef *string `json:"external_ref,omitempty"`
}

// CreateTransfer handles POST /v1/transfers. The sponsor is always the
// authenticated caller; the ledger never accepts a sponsor id from the body.
func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	actorID, role, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	if role != domain.RoleSponsor {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "only sponsors can create transfers")
		return
	}

	var req CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	athleteID, err := uuid.Parse(req.AthleteID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-athlete-id", "Invalid athlete_id")
		return
	}

	amountMicros, err := domain.ParseAmount(req.Amount)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "transfer/invalid-amount", "amount must be a positive value with at most six decimal places")
		return
	}

	var externalRef *string
	if req.ExternalRef != nil {
		trimmed := strings.TrimSpace(*req.ExternalRef)
		if trimmed != "" {
			externalRef = &trimmed
		}
	}

	transfer, created, err := h.transfers.CreateTransfer(r.Context(), actorID, athleteID, amountMicros, externalRef)
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("create transfer failed", zap.Error(err), zap.String("sponsor_id", actorID.String()))
		RespondError(w, r, http.StatusInternalServerError, "transfer/create-failed", "Failed to create transfer")
		return
	}

	// A replayed reference returns the stored transfer, which was not created
	// by this request.
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	RespondJSON(w, status, transferResponse(transfer))
}

// ListTransfers handles GET /v1/transfers. Admins see the full ledger; other
// callers only see transfers they participate in.
func (h *TransferHandler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	actorID, role, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	transfers, err := h.queries.ListTransactions(r.Context(), actorID, role, limit, offset)
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("list transfers failed", zap.Error(err), zap.String("caller_id", actorID.String()))
		RespondError(w, r, http.StatusInternalServerError, "transfer/list-failed", "Failed to list transfers")
		return
	}

	out := make([]map[string]interface{}, 0, len(transfers))
	for i := range transfers {
		out = append(out, transferResponse(&transfers[i]))
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"transfers": out})
}

// GetAthleteBalance handles GET /v1/athletes/{id}/balance.
func (h *TransferHandler) GetAthleteBalance(w http.ResponseWriter, r *http.Request) {
	actorID, role, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	athleteID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-account-id", "Invalid athlete ID")
		return
	}

	balance, err := h.queries.GetBalance(r.Context(), actorID, role, athleteID)
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("get balance failed", zap.Error(err), zap.String("athlete_id", athleteID.String()))
		RespondError(w, r, http.StatusInternalServerError, "balance/read-failed", "Failed to get balance")
		return
	}

	available, err := h.queries.GetAvailableBalance(r.Context(), actorID, role, athleteID)
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("get available balance failed", zap.Error(err), zap.String("athlete_id", athleteID.String()))
		RespondError(w, r, http.StatusInternalServerError, "balance/read-failed", "Failed to get balance")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{
		"athlete_id": athleteID.String(),
		"balance":    balance.String(),
		"available":  available.String(),
	})
}

// GetSponsorTotalSent handles GET /v1/sponsors/{id}/total-sent.
func (h *TransferHandler) GetSponsorTotalSent(w http.ResponseWriter, r *http.Request) {
	actorID, role, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	sponsorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-account-id", "Invalid sponsor ID")
		return
	}

	stats, err := h.queries.GetSponsorStats(r.Context(), actorID, role, sponsorID)
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("get sponsor stats failed", zap.Error(err), zap.String("sponsor_id", sponsorID.String()))
		RespondError(w, r, http.StatusInternalServerError, "balance/read-failed", "Failed to get sponsor stats")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"sponsor_id":      sponsorID.String(),
		"total_sent":      stats.TotalSent.String(),
		"unique_athletes": stats.UniqueCounterparties,
	})
}

func transferResponse(t *models.Transfer) map[string]interface{} {
	resp := map[string]interface{}{
		"id":         t.ID.String(),
		"sponsor_id": t.SponsorID.String(),
		"athlete_id": t.AthleteID.String(),
		"amount":     domain.FormatAmount(t.AmountMicros),
		"status":     t.Status,
		"created_at": t.CreatedAt,
	}
	if t.ExternalRef != nil {
		resp["external_ref"] = *t.ExternalRef
	}
	return resp
}
