package handler

import (
	"errors"
	"net/http"

	"github.com/Rrens/flora-expert/internal/api/middleware"
	"github.com/Rrens/flora-expert/internal/api/response"
	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/Rrens/flora-expert/internal/service"
	"github.com/rs/zerolog/log"
)

// AlertHandler handles the email alert verification endpoints
type AlertHandler struct {
	alertService *service.AlertService
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alertService *service.AlertService) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// RequestCode mails a fresh verification code to the identity's address
func (h *AlertHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	sent, err := h.alertService.RequestCode(r.Context(), identity)
	if err != nil {
		log.Error().Err(err).Str("uid", identity.UID).Msg("Failed to request alert code")
		response.InternalError(w, "failed to request code")
		return
	}

	response.OK(w, map[string]any{
		"sent":  sent,
		"email": identity.Email,
	})
}

// VerifyCode checks and consumes a verification code
func (h *AlertHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input struct {
		Code string `json:"code" validate:"required,numeric,len=6"`
	}
	if !decodeAndValidate(w, r, &input) {
		return
	}

	if err := h.alertService.VerifyCode(r.Context(), identity, input.Code); err != nil {
		if errors.Is(err, domain.ErrInvalidCode) {
			response.BadRequest(w, err.Error())
			return
		}
		log.Error().Err(err).Str("uid", identity.UID).Msg("Failed to verify alert code")
		response.InternalError(w, "failed to verify code")
		return
	}

	response.OK(w, map[string]any{
		"verified": true,
	})
}
