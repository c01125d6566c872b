package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fyrsmithlabs/doceval/internal/config"
	"github.com/fyrsmithlabs/doceval/internal/gitinfo"
)

// RunMeta records the identity and inputs of one evaluation run alongside
// its CSV reports. The config echo marshals secrets redacted.
type RunMeta struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Evaluated  int           `json:"sections_evaluated"`
	Skipped    int           `json:"sections_skipped"`
	Errors     int           `json:"errors"`
	Git        gitinfo.Info  `json:"git"`
	Config     config.Config `json:"config"`
}

// WriteRunMeta writes meta as run.json in dir.
func WriteRunMeta(dir string, meta *RunMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run metadata: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, RunMetaFileName), data, 0o644); err != nil {
		return fmt.Errorf("writing run metadata: %w", err)
	}
	return nil
}

// LoadRunMeta reads run.json from dir. A missing file is not an error; it
// yields nil.
func LoadRunMeta(dir string) (*RunMeta, error) {
	data, err := os.ReadFile(filepath.Join(dir, RunMetaFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading run metadata: %w", err)
	}

	var meta RunMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing run metadata: %w", err)
	}
	return &meta, nil
}
