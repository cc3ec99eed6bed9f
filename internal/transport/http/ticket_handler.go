package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/middleware"
	api "parkingapp/pkg/contracts/api/v1"
	"parkingapp/pkg/contracts/domain"
)

var ticketStatuses = []string{
	string(domain.TicketStatusUnpaid),
	string(domain.TicketStatusPaid),
	string(domain.TicketStatusDisputed),
	string(domain.TicketStatusDismissed),
	string(domain.TicketStatusOverdue),
}

// TicketHandler handles ticket listing, search, CRUD, payment and disputes
type TicketHandler struct {
	service      TicketService
	requests     *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(service TicketService, requests *middleware.RequestValidator, errorHandler *apierrors.ErrorHandler) *TicketHandler {
	return &TicketHandler{
		service:      service,
		requests:     requests,
		errorHandler: errorHandler,
	}
}

// Routes returns the ticket routes
func (h *TicketHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/search", h.Search)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Post("/pay", h.Pay)
		r.Post("/dispute", h.Dispute)
	})
	return r
}

// List handles GET /api/tickets?status=&license_plate=&page=&page_size=
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	status, err := middleware.QueryEnum(r, "status", ticketStatuses)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	page, err := middleware.QueryInt(r, "page", 1, 10000, 0)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	pageSize, err := middleware.QueryInt(r, "page_size", 1, 100, 0)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filter := domain.TicketFilter{
		Status:       domain.TicketStatus(status),
		LicensePlate: r.URL.Query().Get("license_plate"),
		Page:         page,
		PageSize:     pageSize,
	}
	respond(w, r, h.errorHandler, h.service.List(r.Context(), filter), http.StatusOK)
}

// Search handles GET /api/tickets/search?q=
func (h *TicketHandler) Search(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.errorHandler, h.service.Search(r.Context(), r.URL.Query().Get("q")), http.StatusOK)
}

// Get handles GET /api/tickets/{id}
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.errorHandler, h.service.Get(r.Context(), chi.URLParam(r, "id")), http.StatusOK)
}

// Create handles POST /api/tickets
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req api.TicketRequest
	if err := h.requests.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, h.errorHandler, h.service.Create(r.Context(), req.ToDomain()), http.StatusCreated)
}

// Update handles PUT /api/tickets/{id}
func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req api.TicketRequest
	if err := h.requests.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, h.errorHandler, h.service.Update(r.Context(), chi.URLParam(r, "id"), req.ToDomain()), http.StatusOK)
}

// Delete handles DELETE /api/tickets/{id}
func (h *TicketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.errorHandler, h.service.Delete(r.Context(), chi.URLParam(r, "id")), http.StatusOK)
}

// Pay handles POST /api/tickets/{id}/pay
func (h *TicketHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req api.PaymentRequest
	if err := h.requests.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, h.errorHandler, h.service.Pay(r.Context(), chi.URLParam(r, "id"), req.ToDomain()), http.StatusOK)
}

// Dispute handles POST /api/tickets/{id}/dispute
func (h *TicketHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	var req api.DisputeRequest
	if err := h.requests.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, h.errorHandler, h.service.Dispute(r.Context(), chi.URLParam(r, "id"), req.ToDomain()), http.StatusCreated)
}
