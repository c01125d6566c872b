// Package seed generates plausible sample evaluation reports so the
// dashboard has something to show before any real run.
package seed

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/doceval/internal/docs"
	"github.com/fyrsmithlabs/doceval/internal/evaluator"
	"github.com/fyrsmithlabs/doceval/internal/prompt"
	"github.com/fyrsmithlabs/doceval/internal/report"
)

// Options configure sample-result generation. When QuestionsDir/DocsDir
// point at real files, titles, content, and requirements are lifted from
// them; otherwise canned placeholders are used.
type Options struct {
	OutputDir string
	Sections  int   // section files to generate, default 3
	Seed      int64 // 0 derives a seed from the clock

	QuestionsDir    string
	DocsDir         string
	QuestionPattern string
	DocPattern      string
}

// Score bands per metric, low hallucination being the good end.
var scoreBands = map[string][2]float64{
	prompt.MetricCoherence:     {0.65, 0.95},
	prompt.MetricQuality:       {0.60, 0.90},
	prompt.MetricCapture:       {0.70, 0.95},
	prompt.MetricHallucination: {0.10, 0.40},
}

var cannedComments = map[string][]string{
	prompt.MetricCoherence: {
		"The content is well-structured and flows logically.",
		"Generally clear but some transitions could be improved.",
		"Terminology is used consistently throughout.",
		"Good logical flow but a few sections could be more cohesive.",
	},
	prompt.MetricQuality: {
		"The content addresses most requirements with good detail.",
		"Comprehensive coverage of the topic with necessary details.",
		"Content is relevant but could include more specific examples.",
		"Good coverage but some areas could be expanded further.",
	},
	prompt.MetricCapture: {
		"Most key requirements are addressed in the content.",
		"Approximately 85% of requirements are fully addressed.",
		"The content captures essential elements but misses some details.",
		"Good coverage of requirements with minor omissions.",
	},
	prompt.MetricHallucination: {
		"No significant hallucinations detected.",
		"Content aligns well with requirements with minimal fabrication.",
		"A few minor statements could be more precisely worded.",
		"Overall factual with very limited unsubstantiated claims.",
	},
}

var cannedTitles = map[int][]string{
	1: {
		"Object Scope, Purpose, and Use",
		"1.1. Objectives and Business Purpose",
		"1.2. Business Scope of the Object",
	},
	2: {
		"Data Scope and Feature Engineering",
		"2.1. Data Sources and Collection",
		"2.2. Feature Engineering and Selection",
		"2.3. Data Quality Checks",
	},
	3: {
		"Model Development",
		"3.1. Model Architecture",
		"3.2. Training Methodology",
		"3.3. Model Evaluation",
	},
}

const (
	placeholderContent      = "Sample content for this section."
	placeholderRequirements = "Sample requirements for this section."
)

// Generate writes sample per-section reports and a merged report into
// opts.OutputDir and returns the files written. A directory that already
// holds per-section reports is left untouched and yields no files.
func Generate(opts Options, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.OutputDir == "" {
		return nil, errors.New("output directory required")
	}
	if opts.Sections <= 0 {
		opts.Sections = 3
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	if existing, err := existingReports(opts.OutputDir); err != nil {
		return nil, err
	} else if len(existing) > 0 {
		logger.Info("evaluation results already exist, not generating samples",
			zap.Strings("files", existing))
		return nil, nil
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewPCG(uint64(seed), 0))

	var files []string
	for n := 1; n <= opts.Sections; n++ {
		evals := sampleEvaluations(rng, sectionSeeds(opts, n, logger))

		path := filepath.Join(opts.OutputDir, report.SectionFileName(n))
		if err := report.WriteSections(path, evals); err != nil {
			return nil, fmt.Errorf("writing sample report for section %d: %w", n, err)
		}
		logger.Info("wrote sample report", zap.Int("section", n), zap.String("path", path))
		files = append(files, path)
	}

	merged := filepath.Join(opts.OutputDir, report.MergedFileName)
	if err := report.Merge(files, merged, logger); err != nil {
		return nil, fmt.Errorf("merging sample reports: %w", err)
	}
	return append(files, merged), nil
}

func existingReports(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading output directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), "_eval.csv") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// sectionSeed is the title/content/requirements skeleton of one sample row.
type sectionSeed struct {
	Title        string
	Content      string
	Requirements []string
}

// sectionSeeds builds the row skeletons for section n, preferring real
// question and document files when they exist.
func sectionSeeds(opts Options, n int, logger *zap.Logger) []sectionSeed {
	if seeds := realSectionSeeds(opts, n, logger); len(seeds) > 0 {
		return seeds
	}

	titles := cannedTitles[n]
	if titles == nil {
		for i := 1; i <= 3; i++ {
			titles = append(titles, fmt.Sprintf("Section %d.%d", n, i))
		}
	}

	seeds := make([]sectionSeed, 0, len(titles))
	for _, title := range titles {
		seeds = append(seeds, sectionSeed{
			Title:        title,
			Content:      placeholderContent,
			Requirements: []string{placeholderRequirements},
		})
	}
	return seeds
}

func realSectionSeeds(opts Options, n int, logger *zap.Logger) []sectionSeed {
	if opts.DocsDir == "" || opts.DocPattern == "" {
		return nil
	}

	docPath := filepath.Join(opts.DocsDir, docs.ExpandPattern(opts.DocPattern, n))
	raw, err := os.ReadFile(docPath)
	if err != nil {
		return nil
	}
	sections := docs.ExtractSections(string(raw))
	if len(sections) == 0 {
		return nil
	}

	// Requirements come from the question file when one matches by title.
	requirements := map[string]string{}
	if opts.QuestionsDir != "" && opts.QuestionPattern != "" {
		qPath := filepath.Join(opts.QuestionsDir, docs.ExpandPattern(opts.QuestionPattern, n))
		if questions, err := docs.LoadQuestions(qPath); err == nil {
			for _, q := range questions {
				if q.Requirement != "" {
					requirements[q.Title] = q.Requirement
				}
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			logger.Debug("questions unavailable for sample seeding",
				zap.String("path", qPath), zap.Error(err))
		}
	}

	seeds := make([]sectionSeed, 0, len(sections))
	for _, s := range sections {
		req := requirements[s.Title]
		if req == "" {
			req = placeholderRequirements
		}
		seeds = append(seeds, sectionSeed{
			Title:        s.Title,
			Content:      s.Content,
			Requirements: []string{req},
		})
	}
	return seeds
}

// sampleEvaluations rolls banded scores and canned comments for each seed.
// The sample average follows the dashboard's view: hallucination inverted
// before the mean.
func sampleEvaluations(rng *rand.Rand, seeds []sectionSeed) []*evaluator.SectionEvaluation {
	evals := make([]*evaluator.SectionEvaluation, 0, len(seeds))
	for i, s := range seeds {
		scores := make(map[string]evaluator.MetricScore, len(scoreBands))
		for _, metric := range prompt.Metrics() {
			band := scoreBands[metric]
			comments := cannedComments[metric]
			scores[metric] = evaluator.MetricScore{
				Metric:  metric,
				Score:   round2(band[0] + rng.Float64()*(band[1]-band[0])),
				Comment: comments[rng.IntN(len(comments))],
			}
		}

		avg := round2((scores[prompt.MetricCoherence].Score +
			scores[prompt.MetricQuality].Score +
			scores[prompt.MetricCapture].Score +
			(1 - scores[prompt.MetricHallucination].Score)) / 4)

		evals = append(evals, &evaluator.SectionEvaluation{
			SectionID:    fmt.Sprintf("section_%d", i+1),
			Title:        s.Title,
			Content:      s.Content,
			Requirements: s.Requirements,
			Scores:       scores,
			Average:      avg,
		})
	}
	return evals
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
