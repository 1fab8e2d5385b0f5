package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error         string            `json:"error"`
	Type          string            `json:"type,omitempty"`
	RequiredRoles []string          `json:"requiredRoles,omitempty"`
	UserRole      string            `json:"userRole,omitempty"`
	AllowedRoles  []string          `json:"allowedRoles,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Path          string            `json:"path,omitempty"`
	Method        string            `json:"method,omitempty"`
	Detail        string            `json:"detail,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	return json.NewEncoder(w).Encode(data)
}

// WriteOK writes a 200 OK response
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteError writes an ErrorResponse with the given status code
func WriteError(w http.ResponseWriter, status int, body ErrorResponse) error {
	if body.Error == "" {
		body.Error = http.StatusText(status)
	}
	return WriteJSON(w, status, body)
}

// DecodeJSON decodes a size-limited JSON request body into v
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
