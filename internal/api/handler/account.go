package handler

import (
	"encoding/json"
	"net/http"

	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AccountHandler struct {
	svc *service.AccountService
}

func NewAccountHandler(svc *service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// CreateAccount handles POST /v1/accounts. Registration is open, but the role
// is restricted to athlete or sponsor; admin accounts are seeded out of band.
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	account, err := h.svc.CreateAccount(r.Context(), req.DisplayName, req.Role)
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("create account failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "account/create-failed", "Failed to create account")
		return
	}

	RespondJSON(w, http.StatusCreated, account)
}

// ListAthletes handles GET /v1/athletes, the directory sponsors browse before
// sending a transfer.
func (h *AccountHandler) ListAthletes(w http.ResponseWriter, r *http.Request) {
	athletes, err := h.svc.ListAthletes(r.Context())
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("list athletes failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "account/list-failed", "Failed to list athletes")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"athletes": athletes})
}

// BindPayoutAddress handles POST /v1/accounts/{id}/payout-address. Callers may
// bind their own address; admins may bind anyone's.
func (h *AccountHandler) BindPayoutAddress(w http.ResponseWriter, r *http.Request) {
	actorID, role, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-account-id", "Invalid account ID")
		return
	}
	if role != domain.RoleAdmin && accountID != actorID {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}

	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	account, err := h.svc.BindPayoutAddress(r.Context(), accountID, req.Address, &actorID)
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("bind payout address failed", zap.Error(err), zap.String("account_id", accountID.String()))
		RespondError(w, r, http.StatusInternalServerError, "account/payout-address-failed", "Failed to bind payout address")
		return
	}

	RespondJSON(w, http.StatusOK, account)
}
