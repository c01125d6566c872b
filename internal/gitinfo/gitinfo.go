// Package gitinfo reads git metadata for a directory so reports can record
// which revision of the documentation was evaluated.
package gitinfo

import (
	"regexp"

	git "github.com/go-git/go-git/v5"
)

// Info is the repository state of an evaluated directory. Every field is
// best-effort: a directory outside any repository yields the zero value.
type Info struct {
	Branch string `json:"branch,omitempty"`
	Commit string `json:"commit,omitempty"`
	Owner  string `json:"owner,omitempty"`
	Repo   string `json:"repo,omitempty"`
}

// remoteRE extracts owner and repo from a GitHub origin URL.
// Supports: git@github.com:user/repo.git, https://github.com/user/repo.git
var remoteRE = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/\s]+?)(?:\.git)?$`)

// Describe inspects path and returns whatever repository metadata it can.
// Non-repositories are not an error; detection walks up to the repository
// root so a docs directory inside a repo still resolves.
func Describe(path string) Info {
	var info Info

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return info
	}

	if head, err := repo.Head(); err == nil {
		info.Commit = head.Hash().String()
		if head.Name().IsBranch() {
			info.Branch = head.Name().Short()
		}
	}

	if remote, err := repo.Remote("origin"); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			info.Owner, info.Repo = ParseRemote(urls[0])
		}
	}

	return info
}

// ParseRemote extracts the owner and repository name from a GitHub remote
// URL, empty strings when the URL is not a GitHub remote.
func ParseRemote(url string) (owner, repo string) {
	m := remoteRE.FindStringSubmatch(url)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}
