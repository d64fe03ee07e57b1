package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/athlink/sponsorledger/internal/api/middleware"
	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type AuthHandler struct {
	accounts *service.AccountService
	issuer   string
	audience string
}

func NewAuthHandler(accounts *service.AccountService, issuer, audience string) *AuthHandler {
	return &AuthHandler{accounts: accounts, issuer: issuer, audience: audience}
}

// Login issues a JWT for a known account. Mock login by account id; a real
// deployment would sit behind an identity provider.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"account_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	id, err := uuid.Parse(req.AccountID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-account-id", "Invalid account_id")
		return
	}

	account, err := h.accounts.Resolve(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			RespondError(w, r, http.StatusNotFound, "auth/unknown-account", "Account not found")
			return
		}
		RespondError(w, r, http.StatusServiceUnavailable, "store/unavailable", "ledger store unavailable, retry later")
		return
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"account_id": account.ID.String(),
		"role":       account.Role,
		"sub":        account.ID.String(),
		"iat":        now.Unix(),
		"exp":        now.Add(24 * time.Hour).Unix(),
	}
	if h.issuer != "" {
		claims["iss"] = h.issuer
	}
	if h.audience != "" {
		claims["aud"] = h.audience
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(middleware.JWTSecret())
	if err != nil {
		RespondError(w, r, http.StatusInternalServerError, "auth/sign-failed", "Failed to sign token")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"token": tokenString})
}
