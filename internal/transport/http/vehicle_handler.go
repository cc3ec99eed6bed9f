package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/middleware"
	api "parkingapp/pkg/contracts/api/v1"
)

// VehicleHandler handles the user's registered vehicles
type VehicleHandler struct {
	service      VehicleService
	requests     *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(service VehicleService, requests *middleware.RequestValidator, errorHandler *apierrors.ErrorHandler) *VehicleHandler {
	return &VehicleHandler{
		service:      service,
		requests:     requests,
		errorHandler: errorHandler,
	}
}

// Routes returns the vehicle routes
func (h *VehicleHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}

// List handles GET /api/vehicles
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.errorHandler, h.service.List(r.Context()), http.StatusOK)
}

// Create handles POST /api/vehicles
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req api.VehicleRequest
	if err := h.requests.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, h.errorHandler, h.service.Create(r.Context(), req.ToDomain()), http.StatusCreated)
}

// Update handles PUT /api/vehicles/{id}
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req api.VehicleRequest
	if err := h.requests.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, h.errorHandler, h.service.Update(r.Context(), chi.URLParam(r, "id"), req.ToDomain()), http.StatusOK)
}

// Delete handles DELETE /api/vehicles/{id}
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.errorHandler, h.service.Delete(r.Context(), chi.URLParam(r, "id")), http.StatusOK)
}
