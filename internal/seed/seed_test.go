package seed_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/doceval/internal/report"
	"github.com/fyrsmithlabs/doceval/internal/seed"
)

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	files, err := seed.Generate(seed.Options{OutputDir: dir, Sections: 2, Seed: 42}, nil)
	require.NoError(t, err)

	require.Len(t, files, 3, "two section reports plus the merged file")
	for _, f := range files {
		assert.FileExists(t, f)
	}
	assert.Equal(t, filepath.Join(dir, report.MergedFileName), files[2])

	results, err := report.Load(dir, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	byNumber := map[int]int{}
	for _, res := range results {
		byNumber[res.Number]++

		require.Len(t, res.Scores, 4)
		for metric, bounds := range map[string][2]float64{
			"coherence":     {0.65, 0.95},
			"quality":       {0.60, 0.90},
			"capture":       {0.70, 0.95},
			"hallucination": {0.10, 0.40},
		} {
			score, ok := res.Scores[metric]
			require.True(t, ok, metric)
			assert.GreaterOrEqual(t, score.Score, bounds[0], metric)
			assert.LessOrEqual(t, score.Score, bounds[1], metric)
			assert.NotEmpty(t, score.Comment, metric)
		}

		inverted := (res.Scores["coherence"].Score +
			res.Scores["quality"].Score +
			res.Scores["capture"].Score +
			(1 - res.Scores["hallucination"].Score)) / 4
		assert.InDelta(t, inverted, res.Average, 0.006, "sample average inverts hallucination")
	}
	assert.Equal(t, 3, byNumber[1], "section 1 canned titles")
	assert.Equal(t, 4, byNumber[2], "section 2 canned titles")

	assert.Equal(t, "Object Scope, Purpose, and Use", results[0].Title)
	assert.Equal(t, []string{"Sample requirements for this section."}, results[0].Requirements)
}

func TestGenerate_Deterministic(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()

	_, err := seed.Generate(seed.Options{OutputDir: a, Sections: 2, Seed: 7}, nil)
	require.NoError(t, err)
	_, err = seed.Generate(seed.Options{OutputDir: b, Sections: 2, Seed: 7}, nil)
	require.NoError(t, err)

	for _, name := range []string{report.SectionFileName(1), report.SectionFileName(2), report.MergedFileName} {
		ra, err := os.ReadFile(filepath.Join(a, name))
		require.NoError(t, err)
		rb, err := os.ReadFile(filepath.Join(b, name))
		require.NoError(t, err)
		assert.Equal(t, string(ra), string(rb), name)
	}
}

func TestGenerate_SkipsExisting(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, report.SectionFileName(1))
	require.NoError(t, os.WriteFile(existing, []byte("Section ID\n"), 0o644))

	files, err := seed.Generate(seed.Options{OutputDir: dir, Sections: 3, Seed: 1}, nil)
	require.NoError(t, err)

	assert.Empty(t, files)
	assert.NoFileExists(t, filepath.Join(dir, report.SectionFileName(2)))
	assert.NoFileExists(t, filepath.Join(dir, report.MergedFileName))
}

func TestGenerate_UsesRealDocuments(t *testing.T) {
	tmp := t.TempDir()
	docsDir := filepath.Join(tmp, "docs")
	questionsDir := filepath.Join(tmp, "questions")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))
	require.NoError(t, os.MkdirAll(questionsDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "Section_1.md"), []byte(`## Custom Title

Real body text for the custom section.
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(questionsDir, "odd1.yaml"), []byte(`
- section: Custom Title
  prompt: Names the owning team.
`), 0o644))

	dir := filepath.Join(tmp, "out")
	_, err := seed.Generate(seed.Options{
		OutputDir:       dir,
		Sections:        1,
		Seed:            3,
		QuestionsDir:    questionsDir,
		DocsDir:         docsDir,
		QuestionPattern: "odd{n}.yaml",
		DocPattern:      "Section_{n}.md",
	}, nil)
	require.NoError(t, err)

	results, err := report.Load(dir, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "Custom Title", results[0].Title)
	assert.Equal(t, "Real body text for the custom section.", results[0].Content)
	assert.Equal(t, []string{"Names the owning team."}, results[0].Requirements)
}

func TestGenerate_MissingOutputDir(t *testing.T) {
	_, err := seed.Generate(seed.Options{}, nil)
	assert.Error(t, err)
}
