package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/athlink/sponsorledger/internal/service"
	"go.uber.org/zap"
)

// WebhookHandler handles incoming events from the settlement network.
type WebhookHandler struct {
	webhookSvc *service.WebhookService
}

func NewWebhookHandler(webhookSvc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// HandleSettlementWebhook handles POST /v1/webhooks/settlement. It verifies
// the HMAC signature and admits the reported transfer.
func (h *WebhookHandler) HandleSettlementWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		zap.L().Error("read webhook body failed", zap.Error(err))
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
		return
	}

	signature := r.Header.Get("X-Webhook-Signature")

	resp, err := h.webhookSvc.HandleSettlementWebhook(r.Context(), body, signature)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			RespondError(w, r, http.StatusUnauthorized, "webhook/invalid-signature", "Invalid signature")
			return
		}
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("process settlement webhook failed", zap.Error(err))
		RespondError(w, r, http.StatusBadRequest, "webhook/invalid-payload", err.Error())
		return
	}

	RespondJSON(w, http.StatusOK, resp)
}
