// Package temporal identifies files that frequently change in the same
// commit, a signal of hidden coupling the dependency graph cannot see.
package temporal

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/codeatlas/atlas/internal/vcs"
	"github.com/codeatlas/atlas/pkg/config"
	"github.com/codeatlas/atlas/pkg/models"
)

// DefaultGitTimeout bounds the history walk.
const DefaultGitTimeout = 5 * time.Minute

// maxCouplings caps the reported list; only the strongest pairs matter
// downstream.
const maxCouplings = 100

var errStopIteration = errors.New("stop iteration")

// Analyzer computes temporal coupling from git history.
type Analyzer struct {
	maxCommits        int
	minShared         int
	minRatio          float64
	maxFilesPerCommit int
	opener            vcs.Opener
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithOpener sets the VCS opener (useful for testing).
func WithOpener(opener vcs.Opener) Option {
	return func(a *Analyzer) {
		a.opener = opener
	}
}

// New creates a temporal coupling analyzer from config.
func New(cfg config.TemporalConfig, opts ...Option) *Analyzer {
	a := &Analyzer{
		maxCommits:        cfg.MaxCommits,
		minShared:         cfg.MinSharedCommits,
		minRatio:          cfg.MinCouplingRatio,
		maxFilesPerCommit: cfg.MaxFilesPerCommit,
		opener:            vcs.DefaultOpener(),
	}
	if a.maxCommits <= 0 {
		a.maxCommits = 500
	}
	if a.minShared <= 0 {
		a.minShared = 5
	}
	if a.maxFilesPerCommit <= 0 {
		a.maxFilesPerCommit = 50
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// filePair is an unordered pair of files.
type filePair struct {
	a, b string
}

func makeFilePair(a, b string) filePair {
	if a > b {
		a, b = b, a
	}
	return filePair{a: a, b: b}
}

// AnalyzeRepo analyzes temporal coupling for a repository with a default
// timeout.
func (a *Analyzer) AnalyzeRepo(repoPath string) (*models.TemporalCouplingAnalysis, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultGitTimeout)
	defer cancel()
	return a.Analyze(ctx, repoPath)
}

// Analyze walks up to maxCommits of history and reports file pairs whose
// co-change ratio clears the configured thresholds. Commits touching more
// files than maxFilesPerCommit are skipped as bulk changes (renames,
// formatting sweeps) that would drown the signal.
func (a *Analyzer) Analyze(ctx context.Context, repoPath string) (*models.TemporalCouplingAnalysis, error) {
	repo, err := a.opener.PlainOpen(repoPath)
	if err != nil {
		return nil, err
	}

	logIter, err := repo.Log(&vcs.LogOptions{})
	if err != nil {
		return nil, err
	}
	defer logIter.Close()

	cochanges := make(map[filePair]int)
	fileCommits := make(map[string]int)
	commitsSeen := 0

	err = logIter.ForEach(func(c vcs.Commit) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if commitsSeen >= a.maxCommits {
			return errStopIteration
		}
		commitsSeen++

		stats, err := c.Stats()
		if err != nil {
			return nil // merge commits and corrupt objects are skipped
		}
		if len(stats) > a.maxFilesPerCommit {
			return nil
		}

		changed := make([]string, 0, len(stats))
		for _, stat := range stats {
			changed = append(changed, stat.Name)
			fileCommits[stat.Name]++
		}

		for i := 0; i < len(changed); i++ {
			for j := i + 1; j < len(changed); j++ {
				cochanges[makeFilePair(changed[i], changed[j])]++
			}
		}

		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, err
	}

	var couplings []models.FileCoupling
	for pair, shared := range cochanges {
		if shared < a.minShared {
			continue
		}
		commitsA := fileCommits[pair.a]
		commitsB := fileCommits[pair.b]
		ratio := models.CouplingRatio(shared, commitsA, commitsB)
		if ratio < a.minRatio {
			continue
		}
		couplings = append(couplings, models.FileCoupling{
			FileA:         pair.a,
			FileB:         pair.b,
			SharedCommits: shared,
			Ratio:         ratio,
			CommitsA:      commitsA,
			CommitsB:      commitsB,
		})
	}

	sort.Slice(couplings, func(i, j int) bool {
		if couplings[i].Ratio != couplings[j].Ratio {
			return couplings[i].Ratio > couplings[j].Ratio
		}
		if couplings[i].SharedCommits != couplings[j].SharedCommits {
			return couplings[i].SharedCommits > couplings[j].SharedCommits
		}
		if couplings[i].FileA != couplings[j].FileA {
			return couplings[i].FileA < couplings[j].FileA
		}
		return couplings[i].FileB < couplings[j].FileB
	})
	if len(couplings) > maxCouplings {
		couplings = couplings[:maxCouplings]
	}

	return &models.TemporalCouplingAnalysis{
		GeneratedAt:     time.Now().UTC(),
		CommitsAnalyzed: commitsSeen,
		MinShared:       a.minShared,
		MinRatio:        a.minRatio,
		Couplings:       couplings,
	}, nil
}

// Close releases any resources.
func (a *Analyzer) Close() {}
