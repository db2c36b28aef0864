package bmi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/AiCodeFutures/usermanage/internal/apperr"
)

var validate = validator.New()

// Handler exposes the BMI plan endpoint.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	var req PlanInput
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.logger.Debugw("invalid bmi payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := validate.Struct(req); err != nil {
		h.logger.Debugw("bmi payload failed validation", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": apperr.Message(fmt.Errorf("%w: %v", apperr.ErrValidation, err))})
		return
	}
	plan, err := h.svc.Plan(r.Context(), req)
	if err != nil {
		status := apperr.Status(err)
		if status >= http.StatusInternalServerError {
			h.logger.Warnw("bmi plan failed", "err", err)
		}
		h.writeJSON(w, status, map[string]string{"error": apperr.Message(err)})
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
