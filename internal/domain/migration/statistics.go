package migration

import (
	"math"

	"github.com/turtacn/datamigrate/pkg/errors"
)

// Statistics are the record counts and rates of one migration run.  The
// core arithmetic always holds: source − duplicates = migrated.
type Statistics struct {
	TotalSourceRecords int     `json:"total_source_records"`
	DuplicatesFound    int     `json:"duplicates_found"`
	MigratedRecords    int     `json:"migrated_records"`
	DuplicateRate      float64 `json:"duplicate_rate"`
	MigrationRate      float64 `json:"migration_rate"`
}

// NewStatistics derives a consistent Statistics from source and duplicate
// counts.
func NewStatistics(sourceRecords, duplicates int) Statistics {
	s := Statistics{
		TotalSourceRecords: sourceRecords,
		DuplicatesFound:    duplicates,
		MigratedRecords:    sourceRecords - duplicates,
	}
	s.ComputeRates()
	return s
}

// ComputeRates fills DuplicateRate and MigrationRate from the counts,
// rounded to one decimal.  Zero source records yields zero rates.
func (s *Statistics) ComputeRates() {
	if s.TotalSourceRecords == 0 {
		s.DuplicateRate = 0
		s.MigrationRate = 0
		return
	}
	s.DuplicateRate = round1(float64(s.DuplicatesFound) / float64(s.TotalSourceRecords) * 100)
	s.MigrationRate = round1(float64(s.MigratedRecords) / float64(s.TotalSourceRecords) * 100)
}

// Validate enforces the count arithmetic and rate consistency.
func (s Statistics) Validate() error {
	if s.TotalSourceRecords < 0 || s.DuplicatesFound < 0 || s.MigratedRecords < 0 {
		return errors.New(errors.ErrCodeStatsInconsistent, "record counts cannot be negative")
	}
	if s.TotalSourceRecords-s.DuplicatesFound != s.MigratedRecords {
		return errors.Newf(errors.ErrCodeStatsInconsistent,
			"source(%d) - duplicates(%d) != migrated(%d)",
			s.TotalSourceRecords, s.DuplicatesFound, s.MigratedRecords)
	}
	expected := s
	expected.ComputeRates()
	if s.DuplicateRate != expected.DuplicateRate || s.MigrationRate != expected.MigrationRate {
		return errors.Newf(errors.ErrCodeStatsInconsistent,
			"rates %.1f%%/%.1f%% disagree with counts (want %.1f%%/%.1f%%)",
			s.DuplicateRate, s.MigrationRate, expected.DuplicateRate, expected.MigrationRate)
	}
	return nil
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
