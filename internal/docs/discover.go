package docs

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ExpandPattern substitutes a section number into a file name pattern,
// replacing every "{n}" placeholder.
func ExpandPattern(pattern string, n int) string {
	return strings.ReplaceAll(pattern, "{n}", strconv.Itoa(n))
}

// SectionFiles is a question/document file pair for one section number.
type SectionFiles struct {
	Number    int
	Questions string
	Document  string
}

// Discover resolves the question and document paths for every section number
// in [start, end]. Pairs where either file is missing are returned in the
// second slice so callers can warn and continue.
func Discover(questionsDir, docsDir, questionPattern, docPattern string, start, end int) (found, missing []SectionFiles) {
	for n := start; n <= end; n++ {
		pair := SectionFiles{
			Number:    n,
			Questions: filepath.Join(questionsDir, ExpandPattern(questionPattern, n)),
			Document:  filepath.Join(docsDir, ExpandPattern(docPattern, n)),
		}
		if fileExists(pair.Questions) && fileExists(pair.Document) {
			found = append(found, pair)
		} else {
			missing = append(missing, pair)
		}
	}
	return found, missing
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
