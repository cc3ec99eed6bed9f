package services

import (
	"errors"

	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/store"
)

// Response is the envelope every service method returns. Failures are
// reported here rather than as Go errors, so callers never see a raw
// dependency error.
type Response[T any] struct {
	Success bool                `json:"success"`
	Data    *T                  `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Error   string              `json:"error,omitempty"`
	Kind    apierrors.ErrorType `json:"kind,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// Err rebuilds the AppError a failed response was created from, or nil
func (r Response[T]) Err() error {
	if r.Success {
		return nil
	}
	kind := r.Kind
	if kind == "" {
		kind = apierrors.ErrTypeNetwork
	}
	e := apierrors.NewAppError(kind, r.Error, nil)
	if len(r.Fields) > 0 {
		e.WithContext("fields", r.Fields)
	}
	return e
}

func ok[T any](data T, message string) Response[T] {
	return Response[T]{Success: true, Data: &data, Message: message}
}

func fail[T any](err error) Response[T] {
	var fields map[string][]string
	var appErr *apierrors.AppError
	if errors.As(err, &appErr) {
		fields = appErr.FieldErrors()
	}
	return Response[T]{
		Success: false,
		Error:   store.UserMessage(err),
		Kind:    apierrors.TypeOf(err),
		Fields:  fields,
	}
}
