package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

// pipelineResponse mirrors the tool invocation envelope with a decoded
// run_pipeline result.
type pipelineResponse struct {
	Agent  string `json:"agent"`
	Tool   string `json:"tool"`
	Result struct {
		Profile struct {
			RowCount    int `json:"row_count"`
			ColumnCount int `json:"column_count"`
		} `json:"profile"`
		Dedup struct {
			DuplicateRows int `json:"duplicate_rows"`
			UniqueRows    int `json:"unique_rows"`
		} `json:"dedup"`
		Migration struct {
			Run struct {
				ID     string `json:"id"`
				Status string `json:"status"`
				Stats  struct {
					TotalSourceRecords int     `json:"total_source_records"`
					DuplicatesFound    int     `json:"duplicates_found"`
					MigratedRecords    int     `json:"migrated_records"`
					MigrationRate      float64 `json:"migration_rate"`
				} `json:"stats"`
			} `json:"run"`
			FinalPath string `json:"final_path"`
		} `json:"migration"`
		Report struct {
			Record struct {
				ID     string `json:"id"`
				Format string `json:"format"`
			} `json:"record"`
		} `json:"report"`
	} `json:"result"`
}

func postJSON(t *testing.T, url string, payload interface{}) (*http.Response, []byte) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, data
}

func getJSON(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, data
}

func TestFullPipelineOverHTTP(t *testing.T) {
	st := newStack(t)

	src := writeCSV(t, "customers.csv",
		"id,name,city\n"+
			"1,Alice Smith,Berlin\n"+
			"2,Ben Novak,Hamburg\n"+
			"2,Ben Novak,Hamburg\n"+
			"3,Carla Weber,Munich\n"+
			"4,Dana Klein,Cologne\n")

	resp, body := postJSON(t, st.server.URL+"/api/v1/tools/lead/run_pipeline/run", map[string]interface{}{
		"source_path": src,
		"key_columns": []string{"id"},
		"mode":        "skip",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", resp.StatusCode, body)
	}

	var result pipelineResponse
	decodeBody(t, body, &result)

	if result.Agent != "lead" || result.Tool != "run_pipeline" {
		t.Errorf("unexpected envelope: agent=%q tool=%q", result.Agent, result.Tool)
	}
	if result.Result.Profile.RowCount != 5 {
		t.Errorf("expected 5 profiled rows, got %d", result.Result.Profile.RowCount)
	}
	if result.Result.Dedup.DuplicateRows != 1 {
		t.Errorf("expected 1 duplicate removed, got %d", result.Result.Dedup.DuplicateRows)
	}

	stats := result.Result.Migration.Run.Stats
	if stats.TotalSourceRecords-stats.DuplicatesFound != stats.MigratedRecords {
		t.Errorf("source %d - duplicates %d should equal migrated %d",
			stats.TotalSourceRecords, stats.DuplicatesFound, stats.MigratedRecords)
	}
	if stats.MigratedRecords != 4 {
		t.Errorf("expected 4 migrated records, got %d", stats.MigratedRecords)
	}
	if result.Result.Migration.Run.Status != "completed" {
		t.Errorf("expected completed run, got %q", result.Result.Migration.Run.Status)
	}

	runID := result.Result.Migration.Run.ID
	if runID == "" {
		t.Fatal("pipeline result should carry the run id")
	}

	// The run must be queryable afterwards, with its report attached.
	resp, body = getJSON(t, st.server.URL+"/api/v1/runs/"+runID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for run status, got %d", resp.StatusCode)
	}
	var status struct {
		RunID   string `json:"run_id"`
		Status  string `json:"status"`
		Source  string `json:"source"`
		Reports []struct {
			ID string `json:"id"`
		} `json:"reports"`
	}
	decodeBody(t, body, &status)
	if status.Status != "completed" {
		t.Errorf("expected completed status, got %q", status.Status)
	}
	if len(status.Reports) != 1 {
		t.Fatalf("expected 1 report record, got %d", len(status.Reports))
	}

	// And the rendered report must be downloadable.
	resp, body = getJSON(t, st.server.URL+"/api/v1/runs/"+runID+"/report")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for report, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("expected markdown content type, got %q", ct)
	}
	if !strings.Contains(string(body), "Data Migration Report") {
		t.Error("report body should contain the report title")
	}
}

func TestIntentRoutingToToolInvocation(t *testing.T) {
	st := newStack(t)

	resp, body := postJSON(t, st.server.URL+"/api/v1/messages", map[string]string{
		"message": "find duplicate customers in this file",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", resp.StatusCode, body)
	}

	var route struct {
		Agent string `json:"agent"`
		Tool  string `json:"tool"`
	}
	decodeBody(t, body, &route)
	if route.Agent != "cleaner" || route.Tool != "find_fuzzy_duplicates" {
		t.Fatalf("expected cleaner/find_fuzzy_duplicates, got %s/%s", route.Agent, route.Tool)
	}

	// Invoke the routed tool against a real file.
	src := writeCSV(t, "people.csv",
		"id,name\n1,Ann\n2,Bob\n2,Bob\n")
	resp, body = postJSON(t, st.server.URL+"/api/v1/tools/"+route.Agent+"/find_exact_duplicates/run", map[string]interface{}{
		"path":        src,
		"key_columns": []string{"id", "name"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", resp.StatusCode, body)
	}

	var tool struct {
		Result struct {
			TotalRows     int `json:"total_rows"`
			DuplicateRows int `json:"duplicate_rows"`
		} `json:"result"`
	}
	decodeBody(t, body, &tool)
	if tool.Result.DuplicateRows != 1 {
		t.Errorf("expected 1 duplicate row, got %d", tool.Result.DuplicateRows)
	}
}

func TestCreateRunQueuesAndReportsStatus(t *testing.T) {
	st := newStack(t)

	src := writeCSV(t, "orders.csv", "id,total\n1,10\n2,20\n")

	resp, body := postJSON(t, st.server.URL+"/api/v1/runs", map[string]interface{}{
		"source_path": src,
		"mode":        "skip",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (body: %s)", resp.StatusCode, body)
	}

	var run struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeBody(t, body, &run)
	if run.Status != "pending" {
		t.Errorf("expected pending run, got %q", run.Status)
	}

	resp, body = getJSON(t, st.server.URL+"/api/v1/runs/"+run.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var status struct {
		RunID  string `json:"run_id"`
		Status string `json:"status"`
		Source string `json:"source"`
	}
	decodeBody(t, body, &status)
	if status.RunID != run.ID {
		t.Errorf("status run id %q should match created run %q", status.RunID, run.ID)
	}
	if status.Source != "database" {
		t.Errorf("expected database-sourced status, got %q", status.Source)
	}
}

func TestUnknownRunReturnsNotFound(t *testing.T) {
	st := newStack(t)

	resp, body := getJSON(t, st.server.URL+"/api/v1/runs/no-such-run")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (body: %s)", resp.StatusCode, body)
	}
	var errResp struct {
		Code string `json:"code"`
	}
	decodeBody(t, body, &errResp)
	if errResp.Code != "MIG_001" {
		t.Errorf("expected error code MIG_001, got %q", errResp.Code)
	}
}
