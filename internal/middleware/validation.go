package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/security"
)

// MsgInvalidBody is returned for bodies that are not the expected JSON shape
const MsgInvalidBody = "Request body is not valid JSON"

var plateShape = regexp.MustCompile(`^[A-Za-z0-9 -]{1,12}$`)

// RequestValidator checks the shape of decoded request bodies with struct
// tags. Field-level business rules run later, inside the services.
type RequestValidator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewRequestValidator registers the parking-specific tags
func NewRequestValidator(logger *slog.Logger) *RequestValidator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("plate", isPlateShape)
	_ = v.RegisterValidation("filename", isValidFilename)
	_ = v.RegisterValidation("category", isCategory)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{
		validator: v,
		logger:    logger.With(slog.String("component", "request_validator")),
	}
}

// Decode reads a JSON body into dst and validates it. Unknown fields are
// rejected. Errors are validation AppErrors keyed by JSON field name.
func (m *RequestValidator) Decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return apierrors.NewAppValidationError(MsgInvalidBody, nil)
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierrors.NewAppValidationError("Request body is too large", nil)
		}
		m.logger.DebugContext(r.Context(), "request body rejected",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		return apierrors.NewAppValidationError(MsgInvalidBody, nil)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return apierrors.NewAppValidationError(MsgInvalidBody, nil)
	}

	return m.ValidateStruct(dst)
}

// ValidateStruct validates a struct and returns a validation AppError
func (m *RequestValidator) ValidateStruct(v any) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.NewAppValidationError(MsgInvalidBody, nil)
	}

	fields := make(map[string][]string, len(verrs))
	var first string
	for _, fe := range verrs {
		msg := formatValidationError(fe)
		fields[fe.Field()] = append(fields[fe.Field()], msg)
		if first == "" {
			first = msg
		}
	}
	return apierrors.NewAppValidationError(first, fields)
}

// ContentTypeValidator ensures requests with bodies use one of the given
// content types
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			// Body-less actions such as logout need no content type
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			detail := "Content-Type header is required"
			if contentType != "" {
				detail = fmt.Sprintf("Unsupported content type %q", contentType)
			}
			writeProblem(w, r, http.StatusUnsupportedMediaType, apierrors.TypeBadRequest,
				"Unsupported Media Type", detail)
		})
	}
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, param)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "plate":
		return fmt.Sprintf("%s must be a licence plate", field)
	case "filename":
		return fmt.Sprintf("%s must be a valid filename", field)
	case "category":
		return fmt.Sprintf("%s must be a known security category", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// isPlateShape accepts anything that could sanitize to a plate. The exact
// per-state format check happens in the validation package.
func isPlateShape(fl validator.FieldLevel) bool {
	return plateShape.MatchString(strings.TrimSpace(fl.Field().String()))
}

func isValidFilename(fl validator.FieldLevel) bool {
	filename := fl.Field().String()
	if filename == "" || len(filename) > 255 {
		return false
	}
	return !strings.Contains(filename, "..") && !strings.ContainsAny(filename, `/\`)
}

func isCategory(fl validator.FieldLevel) bool {
	_, err := security.ParseCategory(fl.Field().String())
	return err == nil
}

// QueryInt parses an optional integer query parameter within [min, max]
func QueryInt(r *http.Request, param string, min, max, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		msg := fmt.Sprintf("%s must be between %d and %d", param, min, max)
		return 0, apierrors.NewAppValidationError(msg, map[string][]string{param: {msg}})
	}
	return n, nil
}

// QueryEnum parses an optional query parameter restricted to allowed values
func QueryEnum(r *http.Request, param string, allowed []string) (string, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return "", nil
	}
	for _, a := range allowed {
		if raw == a {
			return raw, nil
		}
	}
	msg := fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", "))
	return "", apierrors.NewAppValidationError(msg, map[string][]string{param: {msg}})
}
