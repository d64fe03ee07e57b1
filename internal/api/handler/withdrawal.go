package handler

import (
	"encoding/json"
	"net/http"

	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/service"
	"go.uber.org/zap"
)

type WithdrawalHandler struct {
	svc *service.WithdrawalService
}

func NewWithdrawalHandler(svc *service.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{svc: svc}
}

// CreateWithdrawal handles POST /v1/withdrawals. Athletes withdraw their own
// funds only; the target account is always the authenticated caller.
func (h *WithdrawalHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	actorID, role, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	if role != domain.RoleAthlete {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "only athletes can withdraw")
		return
	}

	var req struct {
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	amountMicros, err := domain.ParseAmount(req.Amount)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "transfer/invalid-amount", "amount must be a positive value with at most six decimal places")
		return
	}

	withdrawal, err := h.svc.Request(r.Context(), actorID, amountMicros)
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("create withdrawal failed", zap.Error(err), zap.String("athlete_id", actorID.String()))
		RespondError(w, r, http.StatusInternalServerError, "withdrawal/create-failed", "Failed to create withdrawal")
		return
	}

	RespondJSON(w, http.StatusAccepted, withdrawal)
}

// ListWithdrawals handles GET /v1/withdrawals.
func (h *WithdrawalHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	actorID, role, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	withdrawals, err := h.svc.List(r.Context(), actorID, role)
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("list withdrawals failed", zap.Error(err), zap.String("caller_id", actorID.String()))
		RespondError(w, r, http.StatusInternalServerError, "withdrawal/list-failed", "Failed to list withdrawals")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"withdrawals": withdrawals})
}
