package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// DetectGitRepo reports whether the current directory sits inside a git
// working tree, returning an error when it does not.
func DetectGitRepo() error {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("not a git repository: %w", err)
	}
	return nil
}

// GetChangedFiles lists paths modified in the working directory relative to
// HEAD, the default seed set for an incremental sync run with no explicit
// paths.
func GetChangedFiles() ([]string, error) {
	cmd := exec.Command("git", "diff", "--name-only", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get changed files: %w", err)
	}

	files := strings.Split(strings.TrimSpace(string(output)), "\n")
	var result []string
	for _, f := range files {
		if f != "" {
			result = append(result, f)
		}
	}
	return result, nil
}

// GetCurrentCommitSHA returns HEAD's commit SHA, the default commit_sha a
// reindex stamps its graph version with when none is given explicitly.
func GetCurrentCommitSHA() (string, error) {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(output)), nil
}
