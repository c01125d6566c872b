package report

import (
	"encoding/csv"
	"errors"
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

// ErrNoReports indicates that none of the inputs to a merge could be read.
var ErrNoReports = errors.New("no valid reports to merge")

// WriteSections writes the evaluations as a per-section CSV report at path,
// creating parent directories as needed.
func WriteSections(path string, evals []*evaluator.SectionEvaluation) error {
	rows := make([][]string, 0, len(evals))
	for _, ev := range evals {
		rows = append(rows, sectionRow(ev))
	}
	return writeCSVFile(path, columns, rows)
}

// SectionFiles lists the per-section reports in dir, ordered by section
// number. A missing directory yields no files.
func SectionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading report directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sectionSuffix) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.SliceStable(files, func(i, j int) bool {
		return sectionNumber(filepath.Base(files[i])) < sectionNumber(filepath.Base(files[j]))
	})
	return files, nil
}

// Merge concatenates per-section reports into a single CSV at outPath,
// adding a Source column with each row's originating file name. Unreadable
// inputs are skipped with a warning; ErrNoReports is returned when nothing
// could be read.
func Merge(files []string, outPath string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	header := append(append(make([]string, 0, len(columns)+1), columns...), sourceColumn)

	var rows [][]string
	merged := 0
	for _, path := range files {
		recs, err := readRecords(path)
		if err != nil {
			logger.Warn("skipping unreadable report", zap.String("path", path), zap.Error(err))
			continue
		}
		src := filepath.Base(path)
		for _, rec := range recs {
			row := make([]string, 0, len(header))
			for _, col := range columns {
				row = append(row, rec[col])
			}
			rows = append(rows, append(row, src))
		}
		merged++
	}
	if merged == 0 {
		return ErrNoReports
	}

	return writeCSVFile(outPath, header, rows)
}

func sectionRow(ev *evaluator.SectionEvaluation) []string {
	row := []string{ev.SectionID, ev.Title, ev.Content, strings.Join(ev.Requirements, "\n")}
	for _, metric := range prompt.Metrics() {
		if s, ok := ev.Scores[metric]; ok {
			row = append(row, formatScore(s.Score))
		} else {
			row = append(row, "")
		}
	}
	for _, metric := range prompt.Metrics() {
		row = append(row, ev.Scores[metric].Comment)
	}
	return append(row, formatScore(ev.Average))
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func writeCSVFile(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	err = w.Write(header)
	if err == nil {
		err = w.WriteAll(rows)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
