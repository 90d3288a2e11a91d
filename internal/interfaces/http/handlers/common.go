// Package handlers implements the HTTP handlers for the migration API.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/turtacn/datamigrate/pkg/errors"
)

// maxBodySize caps request bodies at 1 MiB; tool inputs are small JSON
// documents, the CSV files themselves stay on disk or in object storage.
const maxBodySize = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeAppError maps an application error onto its HTTP status via the
// error code table.  Server-side codes are masked with the default message
// so internals never leak to clients.
func writeAppError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	resp := ErrorResponse{
		Code:    string(code),
		Message: err.Error(),
	}
	if errors.IsServerError(code) {
		resp.Message = errors.DefaultMessageForCode(code)
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads the request body into dest, rejecting unknown fields.
func decodeJSON(r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "invalid JSON request body")
	}
	return nil
}
