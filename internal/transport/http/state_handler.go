package http

import (
	"net/http"

	"github.com/go-chi/render"

	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/services"
	"parkingapp/internal/store"
)

// StateHandler serves the caller's client state. The same snapshot is
// streamed over /ws whenever it changes.
type StateHandler struct {
	errorHandler *apierrors.ErrorHandler
}

// NewStateHandler creates a new state handler
func NewStateHandler(errorHandler *apierrors.ErrorHandler) *StateHandler {
	return &StateHandler{errorHandler: errorHandler}
}

// Snapshot handles GET /api/state
func (h *StateHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	st, ok := store.FromContext(r.Context())
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.NewUnauthorizedError(services.MsgSignInRequired))
		return
	}
	render.JSON(w, r, st.Snapshot())
}
