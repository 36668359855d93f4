package git

import (
	"fmt"
	"log/slog"
)

// MergeAnalysis classifies how a fetched tip relates to the local branch
type MergeAnalysis int

const (
	// AnalysisUpToDate means the fetched tip is already contained in the local branch
	AnalysisUpToDate MergeAnalysis = iota
	// AnalysisFastForward means the local branch can move to the fetched tip without a commit
	AnalysisFastForward
	// AnalysisNormal means the histories diverged and a merge commit is needed
	AnalysisNormal
	// AnalysisUnborn means the local branch has no commits and takes the fetched tip as is
	AnalysisUnborn
)

func (a MergeAnalysis) String() string {
	switch a {
	case AnalysisUpToDate:
		return "up-to-date"
	case AnalysisFastForward:
		return "fast-forward"
	case AnalysisNormal:
		return "normal"
	case AnalysisUnborn:
		return "unborn"
	default:
		return fmt.Sprintf("MergeAnalysis(%d)", int(a))
	}
}

// MergeAnalyzer walks commit ancestry to classify a fetched tip
type MergeAnalyzer struct {
	repo *Repository
}

// NewMergeAnalyzer creates a MergeAnalyzer for repo
func NewMergeAnalyzer(repo *Repository) *MergeAnalyzer {
	return &MergeAnalyzer{repo: repo}
}

// Classify decides what applying fetched onto local requires.
// local is nil when the branch has no commits; fetched is nil when the remote
// does not have the branch.
func (a *MergeAnalyzer) Classify(local, fetched *AnnotatedCommit) (MergeAnalysis, error) {
	analysis, err := a.classify(local, fetched)
	if err != nil {
		return analysis, err
	}
	slog.Debug("merge analysis", slog.String("result", analysis.String()))
	return analysis, nil
}

func (a *MergeAnalyzer) classify(local, fetched *AnnotatedCommit) (MergeAnalysis, error) {
	if local == nil {
		if fetched == nil {
			return AnalysisUpToDate, nil
		}
		return AnalysisUnborn, nil
	}

	if fetched == nil || fetched.Hash == local.Hash {
		return AnalysisUpToDate, nil
	}

	behind, err := a.repo.IsAncestor(fetched.Hash, local.Hash)
	if err != nil {
		return AnalysisUpToDate, fmt.Errorf("failed to compare %s with %s: %w", fetched, local, err)
	}
	if behind {
		return AnalysisUpToDate, nil
	}

	ahead, err := a.repo.IsAncestor(local.Hash, fetched.Hash)
	if err != nil {
		return AnalysisUpToDate, fmt.Errorf("failed to compare %s with %s: %w", local, fetched, err)
	}
	if ahead {
		return AnalysisFastForward, nil
	}

	return AnalysisNormal, nil
}
