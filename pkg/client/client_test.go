package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("not a url")
	assert.Error(t, err)

	c, err := New("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.baseURL)
}

func TestListTools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tools", r.URL.Path)
		assert.Contains(t, r.Header.Get("User-Agent"), "datamigrate-go/")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"agents": [{"name": "profiler", "tools": [{"name": "analyze_csv"}]}]}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	agents, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "profiler", agents[0].Name)
	assert.Equal(t, "analyze_csv", agents[0].Tools[0].Name)
}

func TestRunToolDecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tools/cleaner/remove_duplicates/run", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "/data/in.csv", body["path"])

		_, _ = w.Write([]byte(`{"agent": "cleaner", "tool": "remove_duplicates",
			"result": {"unique_path": "/data/in_unique.csv", "unique_rows": 42}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	var result struct {
		UniquePath string `json:"unique_path"`
		UniqueRows int    `json:"unique_rows"`
	}
	input := map[string]interface{}{"path": "/data/in.csv"}
	require.NoError(t, c.RunTool(context.Background(), "cleaner", "remove_duplicates", input, &result))
	assert.Equal(t, "/data/in_unique.csv", result.UniquePath)
	assert.Equal(t, 42, result.UniqueRows)
}

func TestCreateRunAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/runs":
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"id": "run-1", "status": "pending", "mode": "skip", "source_path": "/data/in.csv"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/runs/run-1":
			_, _ = w.Write([]byte(`{"run_id": "run-1", "status": "completed", "source": "cache",
				"stats": {"total_source_records": 1007, "duplicates_found": 35, "migrated_records": 972}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithTimeout(5*time.Second))
	require.NoError(t, err)

	run, err := c.CreateRun(context.Background(), &RunRequest{SourcePath: "/data/in.csv", Mode: "skip"})
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "pending", run.Status)

	status, err := c.GetRunStatus(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, 972, status.Stats.MigratedRecords)
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code": "MIG_001", "message": "migration run not found"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.GetRunStatus(context.Background(), "nope")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "MIG_001", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "migration run not found")
}

func TestGetReportRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/runs/run-1/report", r.URL.Path)
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte("# Data Migration Report\n"))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	content, err := c.GetReport(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Contains(t, content, "# Data Migration Report")
}
