package git

import (
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// MergeBase returns the lowest common ancestor of two commits.
// When several best common ancestors exist (criss-cross histories) the one with
// the lexicographically lowest hex id is returned. A zero hash means the
// histories are unrelated.
func (r *Repository) MergeBase(a, b plumbing.Hash) (plumbing.Hash, error) {
	commitA, err := r.CommitObject(a)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get commit %s: %w", a, err)
	}

	commitB, err := r.CommitObject(b)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get commit %s: %w", b, err)
	}

	bases, err := commitA.MergeBase(commitB)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to find merge base: %w", err)
	}

	base := lowestCommit(bases)
	if base == nil {
		return plumbing.ZeroHash, nil
	}
	return base.Hash, nil
}

// lowestCommit picks the commit with the lowest hex id
func lowestCommit(commits []*object.Commit) *object.Commit {
	if len(commits) == 0 {
		return nil
	}
	sorted := make([]*object.Commit, len(commits))
	copy(sorted, commits)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Hash.String() < sorted[j].Hash.String()
	})
	return sorted[0]
}

// IsAncestor checks if ancestor is reachable from descendant through parent links.
// A commit counts as its own ancestor.
func (r *Repository) IsAncestor(ancestor, descendant plumbing.Hash) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}

	ancestorCommit, err := r.CommitObject(ancestor)
	if err != nil {
		return false, fmt.Errorf("failed to get ancestor commit: %w", err)
	}

	descendantCommit, err := r.CommitObject(descendant)
	if err != nil {
		return false, fmt.Errorf("failed to get descendant commit: %w", err)
	}

	return ancestorCommit.IsAncestor(descendantCommit)
}
