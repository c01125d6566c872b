package report

import (
	"github.com/fyrsmithlabs/doceval/internal/evaluator"
	"github.com/fyrsmithlabs/doceval/internal/prompt"
)

// Summary aggregates loaded evaluations the way the dashboard presents
// them: hallucination is inverted into an accuracy mean so higher is better
// in every column, and the overall score is the mean of the four views.
type Summary struct {
	Sections  int     `json:"sections"`
	Coherence float64 `json:"coherence"`
	Quality   float64 `json:"quality"`
	Capture   float64 `json:"capture"`
	Accuracy  float64 `json:"accuracy"`
	Overall   float64 `json:"overall"`
	Band      string  `json:"band"`
}

type meanAcc struct {
	sum float64
	n   int
}

func (a *meanAcc) add(v float64) {
	a.sum += v
	a.n++
}

func (a *meanAcc) mean() (float64, bool) {
	if a.n == 0 {
		return 0, false
	}
	return a.sum / float64(a.n), true
}

// Summarize computes the dashboard summary over the loaded results. Metric
// means only count sections where the metric is present, and a metric with
// no observations drops out of the overall mean.
func Summarize(results []SectionResult) Summary {
	s := Summary{Sections: len(results)}
	if len(results) == 0 {
		return s
	}

	accs := make(map[string]*meanAcc, 4)
	for _, metric := range prompt.Metrics() {
		accs[metric] = &meanAcc{}
	}
	for _, r := range results {
		for metric, score := range r.Scores {
			if acc, ok := accs[metric]; ok {
				acc.add(score.Score)
			}
		}
	}

	var overall meanAcc
	if m, ok := accs[prompt.MetricCoherence].mean(); ok {
		s.Coherence = m
		overall.add(m)
	}
	if m, ok := accs[prompt.MetricQuality].mean(); ok {
		s.Quality = m
		overall.add(m)
	}
	if m, ok := accs[prompt.MetricCapture].mean(); ok {
		s.Capture = m
		overall.add(m)
	}
	if m, ok := accs[prompt.MetricHallucination].mean(); ok {
		s.Accuracy = 1 - m
		overall.add(s.Accuracy)
	}
	s.Overall, _ = overall.mean()
	s.Band = Band(s.Overall)

	return s
}

// ResultsFromEvaluations converts freshly computed evaluations into the
// loaded-result shape consumed by Summarize.
func ResultsFromEvaluations(evals []*evaluator.SectionEvaluation) []SectionResult {
	results := make([]SectionResult, 0, len(evals))
	for _, ev := range evals {
		results = append(results, SectionResult{
			SectionID:    ev.SectionID,
			Title:        ev.Title,
			Content:      ev.Content,
			Requirements: ev.Requirements,
			Scores:       ev.Scores,
			Average:      ev.Average,
		})
	}
	return results
}

// Band maps an overall score to its dashboard band.
func Band(score float64) string {
	switch {
	case score > 0.8:
		return "good"
	case score > 0.6:
		return "fair"
	case score > 0.4:
		return "warn"
	default:
		return "poor"
	}
}
