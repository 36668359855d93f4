// Package sync implements the add2git pipeline: bring the branch up to date
// with the remote, commit the requested files and push the result.
package sync

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	add2giterrors "add2git.dev/add2git/internal/errors"
	"add2git.dev/add2git/internal/git"
	"add2git.dev/add2git/internal/runtime"
)

// Options contains options for the sync action
type Options struct {
	// Files are repository-relative paths to stage.
	Files   []string
	Message string
	// Credentials authenticates both the fetch and the push.
	Credentials git.CredentialProvider
}

// Result describes a completed run
type Result struct {
	Merge  *git.MergeResult
	Commit plumbing.Hash
	// Tip is the branch tip after the push, the commit shown to the user.
	Tip *object.Commit
}

// Action fetches the remote branch, merges it, commits the files and pushes.
// Steps run strictly in order and the first failure aborts the rest.
// Merge conflicts are reported through the logger and do not stop the run.
func Action(ctx *runtime.Context, opts Options) (*Result, error) {
	if len(opts.Files) == 0 {
		return nil, add2giterrors.NewValidationError("files", "no files to add")
	}
	if opts.Credentials == nil {
		return nil, add2giterrors.NewValidationError("credentials", "no credential provider")
	}

	gctx := ctx.Context
	if gctx == nil {
		gctx = context.Background()
	}
	repo := ctx.Repo
	splog := ctx.Splog

	if err := repo.EnsureOnBranch(); err != nil {
		return nil, err
	}

	transport := git.NewRemoteTransport(repo, opts.Credentials)

	splog.Debug("Fetching %s from %s...", repo.Branch(), transport.RemoteName())
	fetched, err := transport.Fetch(gctx, repo.Branch())
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	local, err := repo.LocalTip()
	if err != nil {
		return nil, err
	}

	analysis, err := git.NewMergeAnalyzer(repo).Classify(local, fetched)
	if err != nil {
		return nil, fmt.Errorf("merge analysis failed: %w", err)
	}
	splog.Debug("Merge analysis: %s", analysis)

	merge, err := git.NewMergeExecutor(repo, ctx.Signature).Apply(gctx, analysis, local, fetched)
	if err != nil {
		return nil, fmt.Errorf("merge failed: %w", err)
	}
	if analysis != git.AnalysisUpToDate {
		splog.Debug(merge.Message)
	}
	reportConflict(ctx, merge.Conflict)

	hash, err := git.NewCommitStager(repo, ctx.Signature).AddAndCommit(gctx, opts.Files, opts.Message)
	if err != nil {
		return nil, fmt.Errorf("commit failed: %w", err)
	}

	splog.Debug("Pushing %s to %s...", repo.Branch(), transport.RemoteName())
	if err := transport.Push(gctx, repo.Branch()); err != nil {
		return nil, fmt.Errorf("push failed: %w", err)
	}

	tip, err := repo.TipCommit()
	if err != nil {
		return nil, err
	}

	return &Result{Merge: merge, Commit: hash, Tip: tip}, nil
}

func reportConflict(ctx *runtime.Context, conflict *add2giterrors.ConflictWarning) {
	if conflict == nil {
		return
	}

	ctx.Splog.Warn("%v", conflict)
	paths := make([]string, 0, len(conflict.Diffs))
	for p := range conflict.Diffs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		ctx.Splog.Debug("%s", conflict.Diffs[p])
	}
}
