package git

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/lidxdev/lidx/internal/models"
	"github.com/lidxdev/lidx/internal/store"
)

// CoChangeWindowDays and CoChangeMaxCommits bound how far back the miner
// walks: 180 days of history, capped at 1000 commits, matching the
// historical impact layer's reference mining semantics.
const (
	CoChangeWindowDays  = 180
	CoChangeMaxCommits  = 1000
	coChangeHalfLifeDays = 90
	coChangeMaxFilesPerCommit = 50
)

// CoChangeMiner walks a repository's commit history and upserts weighted
// file-pair co-change rows into the store's co_changes table, the data the
// historical impact layer reads at query time.
type CoChangeMiner struct {
	repoPath string
}

// NewCoChangeMiner builds a CoChangeMiner rooted at repoPath.
func NewCoChangeMiner(repoPath string) *CoChangeMiner {
	return &CoChangeMiner{repoPath: repoPath}
}

// commitTouch is one commit's file list plus the exponential recency weight
// every pair drawn from it receives.
type commitTouch struct {
	sha    string
	ts     time.Time
	weight float64
	files  []string
}

// Mine walks `git log --numstat --no-merges` over the last
// CoChangeWindowDays days (capped at CoChangeMaxCommits commits), skips
// commits touching more than coChangeMaxFilesPerCommit files, and for every
// remaining file pair accumulates weight exp(-age_days/90). The resulting
// confidence per pair is min(weighted_count / min(total_a, total_b), 1.0),
// upserted via st.UpsertCoChange. Returns the number of pairs written.
func (m *CoChangeMiner) Mine(ctx context.Context, st *store.Store) (int, error) {
	commits, err := m.walkCommits(ctx)
	if err != nil {
		return 0, err
	}

	type pairWeight struct {
		weight        float64
		lastCommitSHA string
		lastCommitTS  time.Time
	}
	pairWeights := map[[2]string]pairWeight{}
	totalCommits := map[string]int{}

	for _, c := range commits {
		for _, f := range c.files {
			totalCommits[f]++
		}
		for i := 0; i < len(c.files); i++ {
			for j := i + 1; j < len(c.files); j++ {
				a, b := c.files[i], c.files[j]
				if a > b {
					a, b = b, a
				}
				key := [2]string{a, b}
				pw := pairWeights[key]
				pw.weight += c.weight
				if c.ts.After(pw.lastCommitTS) {
					pw.lastCommitSHA = c.sha
					pw.lastCommitTS = c.ts
				}
				pairWeights[key] = pw
			}
		}
	}

	written := 0
	now := time.Now()
	for pair, pw := range pairWeights {
		totalA, totalB := totalCommits[pair[0]], totalCommits[pair[1]]
		minTotal := totalA
		if totalB < minTotal {
			minTotal = totalB
		}
		if minTotal == 0 {
			continue
		}
		confidence := pw.weight / float64(minTotal)
		if confidence > 1.0 {
			confidence = 1.0
		}

		err := st.UpsertCoChange(ctx, models.CoChange{
			FileA:         pair[0],
			FileB:         pair[1],
			CoChangeCount: pw.weight,
			TotalCommitsA: totalA,
			TotalCommitsB: totalB,
			Confidence:    confidence,
			LastCommitSHA: pw.lastCommitSHA,
			LastCommitTS:  pw.lastCommitTS,
			MinedAt:       now,
		})
		if err != nil {
			return written, fmt.Errorf("upsert co-change %s/%s: %w", pair[0], pair[1], err)
		}
		written++
	}

	return written, nil
}

// walkCommits runs one `git log` invocation over the mining window and
// parses its --numstat output into per-commit file lists and recency
// weights, skipping merge commits and any commit touching more than
// coChangeMaxFilesPerCommit files.
func (m *CoChangeMiner) walkCommits(ctx context.Context) ([]commitTouch, error) {
	since := fmt.Sprintf("%d.days.ago", CoChangeWindowDays)
	cmd := exec.CommandContext(ctx, "git", "log",
		"--no-merges", "--no-renames",
		"--since", since,
		"-n", strconv.Itoa(CoChangeMaxCommits),
		"--numstat", "--no-color",
		"--pretty=format:COMMIT:%H:%ct")
	cmd.Dir = m.repoPath

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git log failed: %w", err)
	}

	now := time.Now()
	var commits []commitTouch
	var current *commitTouch
	var currentTS time.Time

	flush := func() {
		if current == nil || len(current.files) == 0 {
			return
		}
		if len(current.files) > coChangeMaxFilesPerCommit {
			return
		}
		ageDays := now.Sub(currentTS).Hours() / 24
		current.ts = currentTS
		current.weight = math.Exp(-ageDays / coChangeHalfLifeDays)
		commits = append(commits, *current)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "COMMIT:") {
			flush()
			parts := strings.SplitN(strings.TrimPrefix(line, "COMMIT:"), ":", 2)
			if len(parts) != 2 {
				current = nil
				continue
			}
			ts, _ := strconv.ParseInt(parts[1], 10, 64)
			currentTS = time.Unix(ts, 0)
			current = &commitTouch{sha: parts[0]}
			continue
		}
		if strings.TrimSpace(line) == "" || current == nil {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			continue
		}
		path := fields[2]
		current.files = append(current.files, path)
	}
	flush()

	return commits, nil
}
