package export

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/accidentes/internal/service"
)

// Report is the YAML manifest written after a successful run.
type Report struct {
	Outputs    map[string]string `yaml:"outputs"`
	Affected   map[string]int    `yaml:"affected_by_type"`
	RunID      string            `yaml:"run_id"`
	Source     string            `yaml:"source"`
	StartedAt  string            `yaml:"started_at"`
	FinishedAt string            `yaml:"finished_at"`
	Duration   string            `yaml:"duration"`
	Rows       ReportRows        `yaml:"rows"`
}

// ReportRows holds per-table row counts.
type ReportRows struct {
	Raw       int `yaml:"raw"`
	Accidents int `yaml:"accidentes"`
	Details   int `yaml:"detalle_accidentes"`
	Communes  int `yaml:"comunas"`
}

// NewReport builds a report from a run summary.
func NewReport(s service.RunSummary) Report {
	return Report{
		RunID:      s.RunID,
		Source:     s.SourceURL,
		StartedAt:  s.StartedAt.Format(time.RFC3339),
		FinishedAt: s.FinishedAt.Format(time.RFC3339),
		Duration:   s.Duration().Round(time.Millisecond).String(),
		Outputs:    s.Outputs,
		Affected:   s.AffectedByType,
		Rows: ReportRows{
			Raw:       s.RawRecords,
			Accidents: s.Accidents,
			Details:   s.Details,
			Communes:  s.Communes,
		},
	}
}

// WriteReport writes the run report as YAML.
func WriteReport(path string, s service.RunSummary) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	data, err := yaml.Marshal(NewReport(s))
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
