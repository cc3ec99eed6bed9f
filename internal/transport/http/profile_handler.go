package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/middleware"
	api "parkingapp/pkg/contracts/api/v1"
)

// multipartMemory is how much of an upload is held in memory before
// spilling to a temporary file
const multipartMemory = 1 << 20

// MsgFileRequired is returned when an upload has no file part
const MsgFileRequired = "Please choose a file to upload"

// ProfileHandler handles the user's profile and supporting documents
type ProfileHandler struct {
	service      UserService
	requests     *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
	maxUpload    int64
	logger       *slog.Logger
}

// NewProfileHandler creates a new profile handler. maxUpload bounds how much
// of a document is read; the file validator applies the user-facing limit.
func NewProfileHandler(service UserService, requests *middleware.RequestValidator, errorHandler *apierrors.ErrorHandler, maxUpload int64, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		service:      service,
		requests:     requests,
		errorHandler: errorHandler,
		maxUpload:    maxUpload,
		logger:       logger.With(slog.String("handler", "profile")),
	}
}

// Routes returns the profile routes
func (h *ProfileHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Put("/", h.Update)
	r.Post("/documents", h.UploadDocument)
	return r
}

// Get handles GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.errorHandler, h.service.Profile(r.Context()), http.StatusOK)
}

// Update handles PUT /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req api.ProfileRequest
	if err := h.requests.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, h.errorHandler, h.service.UpdateProfile(r.Context(), req.ToDomain()), http.StatusOK)
}

// UploadDocument handles POST /api/profile/documents with a multipart "file" part
func (h *ProfileHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewAppValidationError(MsgFileRequired,
			map[string][]string{"file": {MsgFileRequired}}))
		return
	}
	defer file.Close()

	meta := api.DocumentUpload{FileName: header.Filename}
	if err := h.requests.ValidateStruct(meta); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read upload",
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if int64(len(content)) > h.maxUpload {
		h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
		return
	}

	respond(w, r, h.errorHandler, h.service.UploadDocument(r.Context(), meta.FileName, content), http.StatusCreated)
}
