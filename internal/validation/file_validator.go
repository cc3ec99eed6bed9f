package validation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

// DefaultMaxDocumentSize is the upload limit for supporting documents
const DefaultMaxDocumentSize = 5 * 1024 * 1024

// FileValidator checks documents users attach to disputes and profiles
type FileValidator struct {
	logger       *slog.Logger
	maxSize      int64
	allowedTypes map[string][]string
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger, maxSize int64) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxDocumentSize
	}
	return &FileValidator{
		logger:  logger.With(slog.String("component", "file_validator")),
		maxSize: maxSize,
		allowedTypes: map[string][]string{
			".pdf":  {"application/pdf"},
			".jpg":  {"image/jpeg"},
			".jpeg": {"image/jpeg"},
			".png":  {"image/png"},
		},
	}
}

// ValidateDocument checks the name, size and sniffed content type of an upload.
// fileName should already be sanitized.
func (v *FileValidator) ValidateDocument(ctx context.Context, fileName string, content []byte) Result {
	result := Valid()

	if fileName == "" {
		result.addError("File name is required")
	}
	if len(content) == 0 {
		result.addError("File is empty")
		return result
	}
	if int64(len(content)) > v.maxSize {
		result.addError(fmt.Sprintf("File must be %d MB or smaller", v.maxSize/(1024*1024)))
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	allowed, ok := v.allowedTypes[ext]
	if !ok {
		result.addError("Only PDF, JPEG and PNG files are accepted")
		return result
	}

	// Check the declared extension against the actual bytes
	detected := http.DetectContentType(content)
	if !contentTypeAllowed(detected, allowed) {
		v.logger.WarnContext(ctx, "upload content does not match extension",
			slog.String("extension", ext),
			slog.String("detected", detected),
			slog.Int("size", len(content)))
		result.addError("File content does not match its extension")
	}

	return result
}

func contentTypeAllowed(detected string, allowed []string) bool {
	mediaType := strings.TrimSpace(strings.SplitN(detected, ";", 2)[0])
	for _, a := range allowed {
		if mediaType == a {
			return true
		}
	}
	return false
}
