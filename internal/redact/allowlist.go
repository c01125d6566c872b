package redact

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Allowlist holds path and content regex patterns excluded from secret
// detection.
type Allowlist struct {
	Paths   []string
	Regexes []string
}

// LoadAllowlists merges the project .gitleaks.toml under projectDir with an
// explicit user allowlist file, union style. Either location may be empty to
// skip it, and missing files are silently ignored; files that exist but fail
// to parse or carry an invalid pattern return an error.
func LoadAllowlists(projectDir, userFile string) (*Allowlist, error) {
	merged := &Allowlist{}

	if projectDir != "" {
		if err := merged.mergeFile(filepath.Join(projectDir, ".gitleaks.toml")); err != nil {
			return nil, err
		}
	}
	if userFile != "" {
		if err := merged.mergeFile(userFile); err != nil {
			return nil, err
		}
	}

	return merged, nil
}

func (a *Allowlist) mergeFile(path string) error {
	loaded, err := loadTOML(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	a.Paths = append(a.Paths, loaded.Paths...)
	a.Regexes = append(a.Regexes, loaded.Regexes...)
	return nil
}

// loadTOML reads a single allowlist file and validates every pattern so that
// later compilation cannot fail.
func loadTOML(path string) (*Allowlist, error) {
	var file struct {
		Allowlist struct {
			Paths   []string
			Regexes []string
		}
	}

	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}

	for _, pattern := range file.Allowlist.Paths {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: path pattern %q in %s: %v", ErrInvalidRegex, pattern, path, err)
		}
	}
	for _, pattern := range file.Allowlist.Regexes {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: content pattern %q in %s: %v", ErrInvalidRegex, pattern, path, err)
		}
	}

	return &Allowlist{
		Paths:   file.Allowlist.Paths,
		Regexes: file.Allowlist.Regexes,
	}, nil
}
