// Package report writes and reads the CSV evaluation reports and the run
// metadata file that accompanies them.
//
// Each evaluated document produces a per-section report named
// Section<N>_eval.csv; a run ends with a merged_evaluation.csv across every
// document and a run.json identifying the run. The dashboard reads the
// per-section files back through Load.
package report

import (
	"fmt"

	"github.com/fyrsmithlabs/doceval/internal/prompt"
)

// Report file names inside the output directory.
const (
	MergedFileName  = "merged_evaluation.csv"
	RunMetaFileName = "run.json"

	sectionSuffix = "_eval.csv"
	sourceColumn  = "Source"
)

// SectionFileName returns the per-section report name for section n.
func SectionFileName(n int) string {
	return fmt.Sprintf("Section%d_eval.csv", n)
}

// columns is the per-section CSV header. Merged reports append a Source
// column holding the originating file name.
var columns = []string{
	"Section ID",
	"Section Title",
	"Content",
	"Requirements",
	"Coherence Score",
	"Quality Score",
	"Capture Rate",
	"Hallucination Score",
	"Coherence Comment",
	"Quality Comment",
	"Capture Comment",
	"Hallucination Comment",
	"Average Score",
}

var scoreColumns = map[string]string{
	prompt.MetricCoherence:     "Coherence Score",
	prompt.MetricQuality:       "Quality Score",
	prompt.MetricCapture:       "Capture Rate",
	prompt.MetricHallucination: "Hallucination Score",
}

var commentColumns = map[string]string{
	prompt.MetricCoherence:     "Coherence Comment",
	prompt.MetricQuality:       "Quality Comment",
	prompt.MetricCapture:       "Capture Comment",
	prompt.MetricHallucination: "Hallucination Comment",
}
