package temporal

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/atlas/internal/vcs"
	"github.com/codeatlas/atlas/pkg/config"
)

// fakeCommit implements vcs.Commit over canned file stats.
type fakeCommit struct {
	files []string
	err   error
}

func (c *fakeCommit) Hash() plumbing.Hash { return plumbing.Hash{} }
func (c *fakeCommit) NumParents() int     { return 1 }
func (c *fakeCommit) Author() object.Signature {
	return object.Signature{Name: "dev"}
}
func (c *fakeCommit) Message() string { return "" }
func (c *fakeCommit) Stats() (object.FileStats, error) {
	if c.err != nil {
		return nil, c.err
	}
	stats := make(object.FileStats, 0, len(c.files))
	for _, f := range c.files {
		stats = append(stats, object.FileStat{Name: f, Addition: 1})
	}
	return stats, nil
}

type fakeIterator struct {
	commits []vcs.Commit
}

func (i *fakeIterator) ForEach(fn func(vcs.Commit) error) error {
	for _, c := range i.commits {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}
func (i *fakeIterator) Close() {}

type fakeRepo struct {
	commits []vcs.Commit
	logErr  error
}

func (r *fakeRepo) Head() (vcs.Reference, error) { return nil, errors.New("no head") }
func (r *fakeRepo) Log(opts *vcs.LogOptions) (vcs.CommitIterator, error) {
	if r.logErr != nil {
		return nil, r.logErr
	}
	return &fakeIterator{commits: r.commits}, nil
}
func (r *fakeRepo) RepoPath() string { return "/fake/repo" }

type fakeOpener struct {
	repo    vcs.Repository
	openErr error
}

func (o *fakeOpener) PlainOpen(path string) (vcs.Repository, error) {
	if o.openErr != nil {
		return nil, o.openErr
	}
	return o.repo, nil
}
func (o *fakeOpener) PlainOpenWithDetect(path string) (vcs.Repository, error) {
	return o.PlainOpen(path)
}

func coChange(files []string, n int) []vcs.Commit {
	commits := make([]vcs.Commit, 0, n)
	for i := 0; i < n; i++ {
		commits = append(commits, &fakeCommit{files: files})
	}
	return commits
}

func newAnalyzer(commits []vcs.Commit) *Analyzer {
	repo := &fakeRepo{commits: commits}
	return New(config.DefaultConfig().Temporal, WithOpener(&fakeOpener{repo: repo}))
}

func TestAnalyzeFindsCoupledPair(t *testing.T) {
	a := newAnalyzer(coChange([]string{"handler.go", "handler_util.go"}, 6))

	result, err := a.Analyze(context.Background(), "/fake/repo")
	require.NoError(t, err)

	require.Len(t, result.Couplings, 1)
	c := result.Couplings[0]
	assert.Equal(t, "handler.go", c.FileA)
	assert.Equal(t, "handler_util.go", c.FileB)
	assert.Equal(t, 6, c.SharedCommits)
	assert.Equal(t, 1.0, c.Ratio)
	assert.Equal(t, 6, result.CommitsAnalyzed)
}

func TestAnalyzeBelowSharedThreshold(t *testing.T) {
	a := newAnalyzer(coChange([]string{"a.go", "b.go"}, 4))

	result, err := a.Analyze(context.Background(), "/fake/repo")
	require.NoError(t, err)
	assert.Empty(t, result.Couplings)
}

func TestAnalyzeBelowRatioThreshold(t *testing.T) {
	// a.go and b.go share 5 commits but each also changes alone 20 times,
	// so the ratio 5/25 = 0.2 is under the 0.3 default.
	commits := coChange([]string{"a.go", "b.go"}, 5)
	commits = append(commits, coChange([]string{"a.go"}, 20)...)
	commits = append(commits, coChange([]string{"b.go"}, 20)...)
	a := newAnalyzer(commits)

	result, err := a.Analyze(context.Background(), "/fake/repo")
	require.NoError(t, err)
	assert.Empty(t, result.Couplings)
}

func TestAnalyzeSkipsBulkCommits(t *testing.T) {
	bulk := make([]string, 60)
	for i := range bulk {
		bulk[i] = fmt.Sprintf("file%d.go", i)
	}
	a := newAnalyzer(coChange(bulk, 10))

	result, err := a.Analyze(context.Background(), "/fake/repo")
	require.NoError(t, err)
	assert.Empty(t, result.Couplings)
}

func TestAnalyzeSkipsStatErrors(t *testing.T) {
	commits := []vcs.Commit{&fakeCommit{err: errors.New("merge commit")}}
	commits = append(commits, coChange([]string{"a.go", "b.go"}, 5)...)
	a := newAnalyzer(commits)

	result, err := a.Analyze(context.Background(), "/fake/repo")
	require.NoError(t, err)
	assert.Len(t, result.Couplings, 1)
}

func TestAnalyzeCapsCommitCount(t *testing.T) {
	repo := &fakeRepo{commits: coChange([]string{"a.go", "b.go"}, 600)}
	a := New(config.DefaultConfig().Temporal, WithOpener(&fakeOpener{repo: repo}))

	result, err := a.Analyze(context.Background(), "/fake/repo")
	require.NoError(t, err)
	assert.Equal(t, 500, result.CommitsAnalyzed)
}

func TestAnalyzeOpenError(t *testing.T) {
	a := New(config.DefaultConfig().Temporal, WithOpener(&fakeOpener{openErr: errors.New("not a repo")}))
	_, err := a.Analyze(context.Background(), "/invalid")
	assert.Error(t, err)
}

func TestAnalyzeLogError(t *testing.T) {
	repo := &fakeRepo{logErr: errors.New("log failed")}
	a := New(config.DefaultConfig().Temporal, WithOpener(&fakeOpener{repo: repo}))
	_, err := a.Analyze(context.Background(), "/fake/repo")
	assert.Error(t, err)
}

func TestAnalyzeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newAnalyzer(coChange([]string{"a.go", "b.go"}, 5))
	_, err := a.Analyze(ctx, "/fake/repo")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeRatioUsesSmallerCommitCount(t *testing.T) {
	// a.go changes 20 times, b.go only in the 6 shared commits. Ratio is
	// measured against the smaller count: 6/6 = 1.
	commits := coChange([]string{"a.go", "b.go"}, 6)
	commits = append(commits, coChange([]string{"a.go"}, 14)...)
	a := newAnalyzer(commits)

	result, err := a.Analyze(context.Background(), "/fake/repo")
	require.NoError(t, err)
	require.Len(t, result.Couplings, 1)
	assert.Equal(t, 1.0, result.Couplings[0].Ratio)
	assert.Equal(t, 20, result.Couplings[0].CommitsA)
	assert.Equal(t, 6, result.Couplings[0].CommitsB)
}
