package http

import (
	"net/http"

	"github.com/go-chi/render"

	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/services"
)

// respond renders a service envelope. Failed envelopes become problem
// details; successful ones are written with status.
func respond[T any](w http.ResponseWriter, r *http.Request, eh *apierrors.ErrorHandler, resp services.Response[T], status int) {
	if err := resp.Err(); err != nil {
		eh.HandleError(w, r, err)
		return
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}
