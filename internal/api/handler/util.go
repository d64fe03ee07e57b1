package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/athlink/sponsorledger/internal/api/middleware"
	"github.com/athlink/sponsorledger/internal/api/problem"
	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/google/uuid"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

func requestActor(r *http.Request) (uuid.UUID, string, error) {
	accountID := middleware.AccountIDFromContext(r.Context())
	if accountID == "" {
		return uuid.Nil, "", errors.New("missing account in auth context")
	}

	actorID, err := uuid.Parse(accountID)
	if err != nil {
		return uuid.Nil, "", errors.New("invalid account_id in auth context")
	}

	return actorID, middleware.AccountRoleFromContext(r.Context()), nil
}

func mapDomainError(err error) (status int, problemType, message string, ok bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, "transfer/invalid-amount", "amount must be a positive value with at most six decimal places", true
	case errors.Is(err, domain.ErrInvalidAccount):
		return http.StatusUnprocessableEntity, "transfer/invalid-account", "account is missing or has the wrong role for this operation", true
	case errors.Is(err, domain.ErrNotAuthorized):
		return http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions", true
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "transfer/reference-conflict", "external reference already used with a different payload", true
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "withdrawal/insufficient-balance", "requested amount exceeds the available balance", true
	case errors.Is(err, domain.ErrNoPayoutAddress):
		return http.StatusConflict, "withdrawal/no-payout-address", "a payout address must be bound before withdrawing", true
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "resource/not-found", "resource not found", true
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store/unavailable", "ledger store unavailable, retry later", true
	default:
		return 0, "", "", false
	}
}
