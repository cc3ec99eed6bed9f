package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/middleware"
	"parkingapp/internal/security"
	"parkingapp/internal/validation"
	api "parkingapp/pkg/contracts/api/v1"
)

// FormHandler gives the UI live validation feedback and exposes the
// caller's bot score
type FormHandler struct {
	validator    FormValidator
	gate         SecurityChecker
	requests     *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewFormHandler creates a new form handler
func NewFormHandler(validator FormValidator, gate SecurityChecker, requests *middleware.RequestValidator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *FormHandler {
	return &FormHandler{
		validator:    validator,
		gate:         gate,
		requests:     requests,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "forms")),
	}
}

// Validate handles POST /api/validate. Each field is sanitized for its kind
// and checked; the result is returned with 200 even when fields are invalid.
// A set category runs the security gate first, and a rejection is a 429.
func (h *FormHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req api.ValidateFormRequest
	if err := h.requests.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data := make(map[string]any, len(req.Fields))
	rules := make(map[string]validation.Rule, len(req.Fields))
	for name, spec := range req.Fields {
		rule, err := h.validator.RuleFor(spec.Kind, validation.FieldOptions{
			Required: spec.Required,
			State:    spec.State,
			Label:    name,
		})
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.NewAppValidationError(err.Error(),
				map[string][]string{name: {err.Error()}}))
			return
		}
		data[name] = validation.SanitizerFor(spec.Kind)(spec.Value)
		rules[name] = rule
	}

	if req.Category != "" {
		category, err := security.ParseCategory(req.Category)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.NewAppValidationError(err.Error(), nil))
			return
		}
		if res := h.gate.Check(r.Context(), category, data); !res.Allowed {
			h.errorHandler.HandleError(w, r, apierrors.NewSecurityRejection(security.Message(res)))
			return
		}
	}

	render.JSON(w, r, h.validator.Form(r.Context(), data, rules))
}

// BotContext handles GET /api/security/bot-context
func (h *FormHandler) BotContext(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.gate.BotContext(r.Context()))
}
