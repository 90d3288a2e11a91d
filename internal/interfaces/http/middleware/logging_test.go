package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
)

func TestRequestLoggingPassesThrough(t *testing.T) {
	handler := RequestLogging(logging.NewNopLogger(), DefaultLoggingConfig())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("short and stout"))
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}

func TestWrappedResponseWriterDefaultsTo200(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newWrappedResponseWriter(rec)

	_, err := w.Write([]byte("ok"))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.statusCode)
	assert.Equal(t, int64(2), w.bytesWritten)
}

func TestWrappedResponseWriterKeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newWrappedResponseWriter(rec)

	w.WriteHeader(http.StatusNotFound)
	w.WriteHeader(http.StatusOK)
	assert.Equal(t, http.StatusNotFound, w.statusCode)
}
