package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/datamigrate/internal/application/workflow"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
)

func TestMessageRoute(t *testing.T) {
	h := NewMessageHandler(workflow.NewRouter(logging.NewNopLogger()))

	body := strings.NewReader(`{"message": "find duplicates in my customer list"}`)
	rec := httptest.NewRecorder()
	h.Route(rec, httptest.NewRequest(http.MethodPost, "/api/v1/messages", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var route workflow.Route
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &route))
	assert.Equal(t, workflow.AgentCleaner, route.Agent)
	assert.Equal(t, "find_fuzzy_duplicates", route.Tool)
	assert.NotEmpty(t, route.NextSteps)
}

func TestMessageRouteUnrecognized(t *testing.T) {
	h := NewMessageHandler(workflow.NewRouter(logging.NewNopLogger()))

	body := strings.NewReader(`{"message": "what is the weather like"}`)
	rec := httptest.NewRecorder()
	h.Route(rec, httptest.NewRequest(http.MethodPost, "/api/v1/messages", body))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "WF_001", resp.Code)
}

func TestMessageRouteEmptyMessage(t *testing.T) {
	h := NewMessageHandler(workflow.NewRouter(logging.NewNopLogger()))

	rec := httptest.NewRecorder()
	h.Route(rec, httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"message": "  "}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
