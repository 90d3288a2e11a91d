// Package workflow routes free-text requests to agents and drives the
// end-to-end migration pipeline.
package workflow

import (
	"strings"

	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// Agent names, matching the tool catalog served over HTTP.
const (
	AgentProfiler = "profiler"
	AgentCleaner  = "cleaner"
	AgentMapper   = "mapper"
	AgentMigrator = "migrator"
	AgentReporter = "reporter"
	AgentLead     = "lead"
)

// Route is the chosen agent and tool for a request.
type Route struct {
	Agent     string   `json:"agent"`
	Tool      string   `json:"tool"`
	Matched   string   `json:"matched_keyword"`
	NextSteps []string `json:"next_steps,omitempty"`
}

// intentRule maps request keywords to a destination.  Rules are checked in
// order; dedup keywords outrank the generic cleaning ones so "find
// duplicates" lands on the duplicate scan rather than missing-value
// handling.
type intentRule struct {
	keywords  []string
	agent     string
	tool      string
	nextSteps []string
}

var intentRules = []intentRule{
	{
		keywords: []string{"duplicate", "duplication", "dedup", "same", "similar"},
		agent:    AgentCleaner,
		tool:     "find_fuzzy_duplicates",
		nextSteps: []string{
			"Profile data to identify potential duplicates",
			"Generate similarity report for duplicate records",
			"Prepare merge suggestions for review",
		},
	},
	{
		keywords: []string{"profile", "analyze", "analyse", "examine", "statistic"},
		agent:    AgentProfiler,
		tool:     "analyze_csv",
		nextSteps: []string{
			"Run full profile",
			"Check for missing values",
			"Identify key columns",
		},
	},
	{
		keywords: []string{"clean", "missing", "capitali", "standardize"},
		agent:    AgentCleaner,
		tool:     "handle_missing_values",
		nextSteps: []string{
			"Pick a missing-value strategy",
			"Standardize capitalization",
		},
	},
	{
		keywords: []string{"map", "rename", "transform", "schema"},
		agent:    AgentMapper,
		tool:     "apply_field_map",
		nextSteps: []string{
			"Define field mappings",
			"Create transformation rules",
			"Validate mappings",
		},
	},
	{
		keywords: []string{"migrat", "transfer", "export", "load", "move"},
		agent:    AgentMigrator,
		tool:     "migrate",
		nextSteps: []string{
			"Check duplicates against the target",
			"Pick a duplicate handling mode",
			"Run the migration",
		},
	},
	{
		keywords: []string{"report", "summary", "visualiz", "chart"},
		agent:    AgentReporter,
		tool:     "generate_migration_report",
		nextSteps: []string{
			"Generate the migration report",
		},
	},
	{
		keywords: []string{"orchestrate", "coordinate", "pipeline", "start", "begin", "manage"},
		agent:    AgentLead,
		tool:     "run_pipeline",
		nextSteps: []string{
			"Profile the source data",
			"Clean and map it",
			"Migrate and report",
		},
	},
}

// Router picks an agent and tool from a free-text request.
type Router struct {
	logger logging.Logger
}

// NewRouter constructs the intent router.
func NewRouter(logger logging.Logger) *Router {
	return &Router{logger: logger}
}

// Route matches the request against the keyword rules.  An unmatched
// request is an error the caller turns into a clarification prompt.
func (r *Router) Route(message string) (*Route, error) {
	intent := strings.ToLower(message)
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(intent, kw) {
				route := &Route{
					Agent:     rule.agent,
					Tool:      rule.tool,
					Matched:   kw,
					NextSteps: rule.nextSteps,
				}
				r.logger.Debug("Routed request",
					logging.String("agent", route.Agent),
					logging.String("tool", route.Tool),
					logging.String("keyword", kw),
				)
				return route, nil
			}
		}
	}
	return nil, errors.Newf(errors.ErrCodeIntentUnrecognized,
		"could not route request: mention profiling, cleaning, mapping, migration, or reporting")
}
