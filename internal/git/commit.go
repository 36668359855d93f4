package git

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	add2giterrors "add2git.dev/add2git/internal/errors"
)

// CommitStager stages explicit paths and commits them on top of the branch tip
type CommitStager struct {
	repo      *Repository
	signature Signature
	now       func() time.Time
}

// NewCommitStager creates a CommitStager that signs commits with signature
func NewCommitStager(repo *Repository, signature Signature) *CommitStager {
	return &CommitStager{repo: repo, signature: signature, now: time.Now}
}

// AddAndCommit stages paths, writes a tree from the index and commits it with
// the current tip as its only parent. Only the given paths differ from the tip;
// anything staged earlier is dropped from the index first.
func (s *CommitStager) AddAndCommit(_ context.Context, paths []string, message string) (plumbing.Hash, error) {
	if len(paths) == 0 {
		return plumbing.ZeroHash, add2giterrors.NewValidationError("paths", "at least one path is required")
	}

	tip, err := s.repo.LocalTip()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if tip == nil {
		return plumbing.ZeroHash, add2giterrors.NewStateError("cannot commit on %s: the branch has no commits yet", s.repo.Branch())
	}
	if err := s.repo.EnsureOnBranch(); err != nil {
		return plumbing.ZeroHash, err
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get worktree: %w", err)
	}

	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		name, err := cleanRepoPath(p)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if _, err := wt.Filesystem.Lstat(name); err != nil {
			return plumbing.ZeroHash, add2giterrors.NewIOError(p, err)
		}
		f, err := wt.Filesystem.Open(name)
		if err != nil {
			return plumbing.ZeroHash, add2giterrors.NewIOError(p, err)
		}
		_ = f.Close()
		cleaned = append(cleaned, name)
	}

	if err := wt.Reset(&gogit.ResetOptions{Commit: tip.Hash, Mode: gogit.MixedReset}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to reset index: %w", err)
	}

	for _, name := range cleaned {
		if _, err := wt.Add(name); err != nil {
			return plumbing.ZeroHash, add2giterrors.NewIOError(name, err)
		}
		slog.Debug("staged", slog.String("path", name))
	}

	sig := s.signature.At(s.now())
	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to commit: %w", err)
	}

	slog.Debug("committed", slog.String("hash", hash.String()), slog.String("parent", tip.Hash.String()))
	return hash, nil
}

// cleanRepoPath normalizes a repository-relative path to slash form
func cleanRepoPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return "", add2giterrors.NewValidationError("path", fmt.Sprintf("%s must be relative to the repository root", p))
	}
	name := path.Clean(filepath.ToSlash(p))
	if name == "." || name == ".." || strings.HasPrefix(name, "../") {
		return "", add2giterrors.NewValidationError("path", fmt.Sprintf("%s is outside the repository", p))
	}
	return name, nil
}
