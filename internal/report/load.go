package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/doceval/internal/evaluator"
	"github.com/fyrsmithlabs/doceval/internal/prompt"
)

// SectionResult is one evaluated section read back from a CSV report.
type SectionResult struct {
	SectionID    string                           `json:"section_id"`
	Title        string                           `json:"title"`
	Content      string                           `json:"content"`
	Requirements []string                         `json:"requirements,omitempty"`
	Scores       map[string]evaluator.MetricScore `json:"scores"`
	Average      float64                          `json:"average"`
	Number       int                              `json:"number"` // section number from the file name
	Source       string                           `json:"source"` // file base name
}

// Load reads every per-section report in dir, ordered by section number.
// A missing directory yields no results; unreadable files and malformed
// rows are skipped with a warning so one bad report cannot take the
// dashboard down.
func Load(dir string, logger *zap.Logger) ([]SectionResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading report directory: %w", err)
	}

	var results []SectionResult
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sectionSuffix) {
			continue
		}

		recs, err := readRecords(filepath.Join(dir, e.Name()))
		if err != nil {
			logger.Warn("skipping unreadable report", zap.String("file", e.Name()), zap.Error(err))
			continue
		}

		num := sectionNumber(e.Name())
		for i, rec := range recs {
			res, err := resultFromRecord(rec)
			if err != nil {
				logger.Warn("skipping malformed report row",
					zap.String("file", e.Name()), zap.Int("row", i+1), zap.Error(err))
				continue
			}
			res.Number = num
			res.Source = e.Name()
			results = append(results, res)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Number != results[j].Number {
			return results[i].Number < results[j].Number
		}
		return results[i].Source < results[j].Source
	})
	return results, nil
}

// readRecords reads a CSV file into per-row column maps keyed by header
// name. Short rows leave their trailing columns empty.
func readRecords(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	header := rows[0]
	recs := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func resultFromRecord(rec map[string]string) (SectionResult, error) {
	res := SectionResult{
		SectionID: rec["Section ID"],
		Title:     rec["Section Title"],
		Content:   rec["Content"],
		Scores:    make(map[string]evaluator.MetricScore),
	}

	for _, line := range strings.Split(rec["Requirements"], "\n") {
		if line = strings.TrimSpace(line); line != "" {
			res.Requirements = append(res.Requirements, line)
		}
	}

	for _, metric := range prompt.Metrics() {
		cell := rec[scoreColumns[metric]]
		if cell == "" {
			continue
		}
		score, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return SectionResult{}, fmt.Errorf("bad %s %q: %w", scoreColumns[metric], cell, err)
		}
		res.Scores[metric] = evaluator.MetricScore{
			Metric:  metric,
			Score:   score,
			Comment: rec[commentColumns[metric]],
		}
	}

	if cell := rec["Average Score"]; cell != "" {
		avg, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return SectionResult{}, fmt.Errorf("bad Average Score %q: %w", cell, err)
		}
		res.Average = avg
	} else {
		res.Average = evaluator.AverageScore(res.Scores)
	}

	return res, nil
}

// sectionNumber extracts N from a Section<N>_eval.csv file name, 0 when the
// name does not carry one.
func sectionNumber(name string) int {
	rest, ok := strings.CutPrefix(name, "Section")
	if !ok {
		return 0
	}
	numStr, _, ok := strings.Cut(rest, "_")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(numStr)
	if err != nil {
		return 0
	}
	return n
}
