package git

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pmezard/go-difflib/difflib"

	add2giterrors "add2git.dev/add2git/internal/errors"
)

// MergeResult describes what applying a merge analysis did to the branch
type MergeResult struct {
	Analysis MergeAnalysis
	// OldHead is the branch tip before the merge; zero for an unborn branch.
	OldHead plumbing.Hash
	// Head is the branch tip after the merge.
	Head plumbing.Hash
	// MergeBase is set for normal merges only.
	MergeBase plumbing.Hash
	// Message describes the reference update.
	Message string
	// Conflict lists paths resolved in favour of the local side; nil when there were none.
	Conflict *add2giterrors.ConflictWarning
}

// CreatedCommit reports whether the merge produced a new commit object
func (r *MergeResult) CreatedCommit() bool {
	return r.Analysis == AnalysisNormal
}

// MergeExecutor applies a MergeAnalysis to the synchronized branch.
//
// Conflicting paths of a normal merge are resolved by keeping the local
// version; the merge never stops for conflicts and never writes conflict markers.
// Callers receive the affected paths in MergeResult.Conflict.
type MergeExecutor struct {
	repo      *Repository
	signature Signature
	now       func() time.Time
}

// NewMergeExecutor creates a MergeExecutor that signs merge commits with signature
func NewMergeExecutor(repo *Repository, signature Signature) *MergeExecutor {
	return &MergeExecutor{repo: repo, signature: signature, now: time.Now}
}

// Apply performs the action required by analysis
func (m *MergeExecutor) Apply(ctx context.Context, analysis MergeAnalysis, local, fetched *AnnotatedCommit) (*MergeResult, error) {
	switch analysis {
	case AnalysisUpToDate:
		result := &MergeResult{Analysis: analysis, Message: "Already up to date."}
		if local != nil {
			result.OldHead = local.Hash
			result.Head = local.Hash
		}
		return result, nil
	case AnalysisFastForward:
		if local == nil || fetched == nil {
			return nil, add2giterrors.NewStateError("fast-forward needs both a local and a fetched tip")
		}
		return m.fastForward(ctx, local, fetched)
	case AnalysisNormal:
		if local == nil || fetched == nil {
			return nil, add2giterrors.NewStateError("merge needs both a local and a fetched tip")
		}
		return m.normalMerge(ctx, local, fetched)
	case AnalysisUnborn:
		if fetched == nil {
			return nil, add2giterrors.NewStateError("cannot create %s without a fetched tip", m.repo.Branch())
		}
		return m.createBranch(ctx, fetched)
	default:
		return nil, add2giterrors.NewStateError("unknown merge analysis %s", analysis)
	}
}

func (m *MergeExecutor) fastForward(ctx context.Context, local, fetched *AnnotatedCommit) (*MergeResult, error) {
	oldTree, err := m.repo.treeOf(local.Hash)
	if err != nil {
		return nil, err
	}

	if err := m.repo.setBranch(local.Hash, fetched.Hash); err != nil {
		return nil, err
	}

	kept, err := m.repo.moveTo(ctx, oldTree, fetched.Hash)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Fast-Forward: Setting %s to id: %s (was %s)", m.repo.BranchRef(), fetched.Hash, local.Hash)
	slog.Debug(msg)

	return &MergeResult{
		Analysis: AnalysisFastForward,
		OldHead:  local.Hash,
		Head:     fetched.Hash,
		Message:  msg,
		Conflict: conflictWarning(kept, nil),
	}, nil
}

func (m *MergeExecutor) createBranch(ctx context.Context, fetched *AnnotatedCommit) (*MergeResult, error) {
	if err := m.repo.setBranch(plumbing.ZeroHash, fetched.Hash); err != nil {
		return nil, err
	}

	head := plumbing.NewSymbolicReference(plumbing.HEAD, m.repo.BranchRef())
	if err := m.repo.Storer.SetReference(head); err != nil {
		return nil, fmt.Errorf("failed to point HEAD at %s: %w", m.repo.BranchRef(), err)
	}

	kept, err := m.repo.moveTo(ctx, nil, fetched.Hash)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Setting %s to %s", m.repo.Branch(), fetched.Hash)
	slog.Debug(msg)

	return &MergeResult{
		Analysis: AnalysisUnborn,
		Head:     fetched.Hash,
		Message:  msg,
		Conflict: conflictWarning(kept, nil),
	}, nil
}

func (m *MergeExecutor) normalMerge(ctx context.Context, local, fetched *AnnotatedCommit) (*MergeResult, error) {
	base, err := m.repo.MergeBase(local.Hash, fetched.Hash)
	if err != nil {
		return nil, err
	}
	if base.IsZero() {
		return nil, add2giterrors.NewStateError("cannot merge %s into %s: no common ancestor", fetched.Hash, local.Hash)
	}

	baseTree, err := m.repo.treeOf(base)
	if err != nil {
		return nil, err
	}
	localTree, err := m.repo.treeOf(local.Hash)
	if err != nil {
		return nil, err
	}
	remoteTree, err := m.repo.treeOf(fetched.Hash)
	if err != nil {
		return nil, err
	}

	baseEntries, err := flattenTree(baseTree)
	if err != nil {
		return nil, err
	}
	localEntries, err := flattenTree(localTree)
	if err != nil {
		return nil, err
	}
	remoteEntries, err := flattenTree(remoteTree)
	if err != nil {
		return nil, err
	}

	merged, conflicts := mergeEntries(baseEntries, localEntries, remoteEntries)
	if len(conflicts) > 0 {
		slog.Debug("merge conflicts detected", slog.Any("paths", conflicts))
	}

	treeHash, err := writeTree(m.repo.Storer, merged)
	if err != nil {
		return nil, fmt.Errorf("failed to write merged tree: %w", err)
	}

	sig := m.signature.At(m.now())
	commit := &object.Commit{
		Author:       *sig,
		Committer:    *sig,
		Message:      fmt.Sprintf("Merge: %s into %s", fetched.Hash, local.Hash),
		TreeHash:     treeHash,
		ParentHashes: []plumbing.Hash{local.Hash, fetched.Hash},
	}

	obj := m.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return nil, fmt.Errorf("failed to encode merge commit: %w", err)
	}
	mergeHash, err := m.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to store merge commit: %w", err)
	}

	if err := m.repo.setBranch(local.Hash, mergeHash); err != nil {
		return nil, err
	}

	kept, err := m.repo.moveTo(ctx, localTree, mergeHash)
	if err != nil {
		return nil, err
	}

	diffs := m.conflictDiffs(conflicts, localEntries, remoteEntries)
	msg := fmt.Sprintf("Merge: Setting %s to id: %s (was %s)", m.repo.BranchRef(), mergeHash, local.Hash)

	return &MergeResult{
		Analysis:  AnalysisNormal,
		OldHead:   local.Hash,
		Head:      mergeHash,
		MergeBase: base,
		Message:   msg,
		Conflict:  conflictWarning(append(conflicts, kept...), diffs),
	}, nil
}

// conflictDiffs renders a unified diff of local against remote for each text conflict
func (m *MergeExecutor) conflictDiffs(paths []string, local, remote map[string]treeEntry) map[string]string {
	diffs := make(map[string]string, len(paths))
	for _, p := range paths {
		localText, ok := m.blobText(local, p)
		if !ok {
			continue
		}
		remoteText, ok := m.blobText(remote, p)
		if !ok {
			continue
		}
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(localText),
			B:        difflib.SplitLines(remoteText),
			FromFile: "local/" + p,
			ToFile:   "remote/" + p,
			Context:  3,
		})
		if err != nil {
			continue
		}
		diffs[p] = diff
	}
	return diffs
}

// blobText returns the contents of a text blob at path; missing and binary blobs yield false
func (m *MergeExecutor) blobText(entries map[string]treeEntry, path string) (string, bool) {
	entry, ok := entries[path]
	if !ok || !entry.Mode.IsFile() {
		return "", false
	}
	blob, err := m.repo.BlobObject(entry.Hash)
	if err != nil {
		return "", false
	}
	reader, err := blob.Reader()
	if err != nil {
		return "", false
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", false
	}
	if bytes.IndexByte(buf.Bytes(), 0) >= 0 {
		return "", false
	}
	return buf.String(), true
}

func conflictWarning(paths []string, diffs map[string]string) *add2giterrors.ConflictWarning {
	if len(paths) == 0 {
		return nil
	}
	unique := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		unique[p] = struct{}{}
	}
	sorted := make([]string, 0, len(unique))
	for p := range unique {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)
	return add2giterrors.NewConflictWarning(sorted, diffs)
}
