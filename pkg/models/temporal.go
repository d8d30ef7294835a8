package models

import "time"

// FileCoupling represents the temporal coupling between two files: how often
// they changed in the same commit relative to how often each changed at all.
type FileCoupling struct {
	FileA         string  `json:"file_a"`
	FileB         string  `json:"file_b"`
	SharedCommits int     `json:"shared_commits"`
	Ratio         float64 `json:"ratio"` // 0-1
	CommitsA      int     `json:"commits_a"`
	CommitsB      int     `json:"commits_b"`
}

// TemporalCouplingAnalysis is the full co-change analysis result, the shape
// consumed by rule evaluators.
type TemporalCouplingAnalysis struct {
	GeneratedAt     time.Time      `json:"generated_at"`
	CommitsAnalyzed int            `json:"commits_analyzed"`
	MinShared       int            `json:"min_shared"`
	MinRatio        float64        `json:"min_ratio"`
	Couplings       []FileCoupling `json:"couplings"`
}

// CouplingRatio computes the coupling strength between two files:
// shared commits over the smaller of the two per-file commit counts,
// capped at 1.
func CouplingRatio(shared, commitsA, commitsB int) float64 {
	minCommits := commitsA
	if commitsB < minCommits {
		minCommits = commitsB
	}
	if minCommits == 0 {
		return 0
	}
	ratio := float64(shared) / float64(minCommits)
	if ratio > 1.0 {
		ratio = 1.0
	}
	return ratio
}
