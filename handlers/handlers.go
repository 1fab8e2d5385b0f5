package handlers

import (
	"net/http"

	"github.com/upb/identity-gateway/utils"
)

// HandlerFunc is an HTTP handler that reports failures as errors
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handle adapts fn to http.HandlerFunc, sending returned errors through the responder
func Handle(responder *utils.ErrorResponder, fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			responder.Respond(w, r, err)
		}
	}
}

// NotFound handles requests that match no route, including wrong methods
func NotFound(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteError(w, http.StatusNotFound, utils.ErrorResponse{
		Error:  "Not Found",
		Path:   r.URL.Path,
		Method: r.Method,
	})
}
