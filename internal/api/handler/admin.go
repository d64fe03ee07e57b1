package handler

import (
	"net/http"

	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/service"
	"go.uber.org/zap"
)

type AdminHandler struct {
	queries *service.QueryService
}

func NewAdminHandler(queries *service.QueryService) *AdminHandler {
	return &AdminHandler{queries: queries}
}

// GetTotals handles GET /v1/admin/totals. The route is already gated by
// RequireRole(admin); the service repeats the check so the rule holds for any
// future caller too.
func (h *AdminHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	_, role, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	totals, err := h.queries.GetSystemTotals(r.Context(), role)
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("get system totals failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "admin/totals-failed", "Failed to get totals")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"total_volume":       domain.FormatAmount(totals.TotalVolumeMicros),
		"total_transactions": totals.TotalTransactions,
		"total_accounts":     totals.TotalAccounts,
		"total_athletes":     totals.TotalAthletes,
		"total_sponsors":     totals.TotalSponsors,
	})
}
