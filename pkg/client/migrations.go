package client

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Tool describes one tool in the server's catalog.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Agent groups the tools one agent exposes.
type Agent struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Tools       []Tool `json:"tools"`
}

// Route is the agent and tool chosen for a free-text request.
type Route struct {
	Agent     string   `json:"agent"`
	Tool      string   `json:"tool"`
	Matched   string   `json:"matched_keyword"`
	NextSteps []string `json:"next_steps,omitempty"`
}

// RunRequest queues a migration run.
type RunRequest struct {
	SourcePath string   `json:"source_path"`
	TargetPath string   `json:"target_path,omitempty"`
	KeyColumns []string `json:"key_columns,omitempty"`
	Mode       string   `json:"mode,omitempty"`
}

// RunStatistics mirrors the server's migration statistics.
type RunStatistics struct {
	TotalSourceRecords int     `json:"total_source_records"`
	DuplicatesFound    int     `json:"duplicates_found"`
	MigratedRecords    int     `json:"migrated_records"`
	DuplicateRate      float64 `json:"duplicate_rate"`
	MigrationRate      float64 `json:"migration_rate"`
}

// Run is a queued or finished migration run.
type Run struct {
	ID         string        `json:"id"`
	SourcePath string        `json:"source_path"`
	TargetPath string        `json:"target_path,omitempty"`
	KeyColumns []string      `json:"key_columns,omitempty"`
	Mode       string        `json:"mode"`
	Status     string        `json:"status"`
	Stats      RunStatistics `json:"stats"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ReportRecord points at a rendered report.
type ReportRecord struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id"`
	Format      string    `json:"format"`
	Bucket      string    `json:"bucket"`
	ObjectKey   string    `json:"object_key"`
	GeneratedAt time.Time `json:"generated_at"`
}

// RunStatus is the live view of a run.
type RunStatus struct {
	RunID   string          `json:"run_id"`
	Status  string          `json:"status"`
	Stats   RunStatistics   `json:"stats"`
	Error   string          `json:"error,omitempty"`
	Source  string          `json:"source"`
	Reports []*ReportRecord `json:"reports,omitempty"`
}

// Health reports whether the server is ready.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil, nil)
}

// ListTools fetches the agent and tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]Agent, error) {
	var resp struct {
		Agents []Agent `json:"agents"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/tools", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// RunTool invokes one tool with a JSON-serializable input, decoding the
// tool's result into out.
func (c *Client) RunTool(ctx context.Context, agent, tool string, input, out interface{}) error {
	var resp struct {
		Result interface{} `json:"result"`
	}
	resp.Result = out
	path := "/api/v1/tools/" + url.PathEscape(agent) + "/" + url.PathEscape(tool) + "/run"
	return c.do(ctx, http.MethodPost, path, input, &resp)
}

// RouteMessage asks the server which agent and tool fit a free-text
// request.
func (c *Client) RouteMessage(ctx context.Context, message string) (*Route, error) {
	var route Route
	body := map[string]string{"message": message}
	if err := c.do(ctx, http.MethodPost, "/api/v1/messages", body, &route); err != nil {
		return nil, err
	}
	return &route, nil
}

// CreateRun queues a migration run for the worker.
func (c *Client) CreateRun(ctx context.Context, req *RunRequest) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodPost, "/api/v1/runs", req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRunStatus fetches the live status of a run.
func (c *Client) GetRunStatus(ctx context.Context, runID string) (*RunStatus, error) {
	var status RunStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/runs/"+url.PathEscape(runID), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListReports fetches the report records of a run.
func (c *Client) ListReports(ctx context.Context, runID string) ([]*ReportRecord, error) {
	var resp struct {
		Reports []*ReportRecord `json:"reports"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/runs/"+url.PathEscape(runID)+"/reports", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Reports, nil
}

// GetReport downloads the newest rendered report of a run.
func (c *Client) GetReport(ctx context.Context, runID string) (string, error) {
	return c.getRaw(ctx, "/api/v1/runs/"+url.PathEscape(runID)+"/report")
}
