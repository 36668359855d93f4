package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// moveTo points the index at target's tree and rewrites the working-tree files
// that differ between from and target. Files modified on disk since from are
// left untouched and returned as conflicting paths.
func (r *Repository) moveTo(ctx context.Context, from *object.Tree, target plumbing.Hash) ([]string, error) {
	wt, err := r.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := wt.Reset(&gogit.ResetOptions{Commit: target, Mode: gogit.MixedReset}); err != nil {
		return nil, fmt.Errorf("failed to reset index to %s: %w", target, err)
	}

	to, err := r.treeOf(target)
	if err != nil {
		return nil, err
	}

	return checkoutChanges(ctx, wt.Filesystem, from, to)
}

func checkoutChanges(ctx context.Context, fs billy.Filesystem, from, to *object.Tree) ([]string, error) {
	changes, err := object.DiffTreeWithOptions(ctx, from, to, &object.DiffTreeOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	var kept []string
	for _, change := range changes {
		before, after, err := change.Files()
		if err != nil {
			return nil, fmt.Errorf("failed to read change: %w", err)
		}

		name := change.To.Name
		if name == "" {
			name = change.From.Name
		}

		modified, err := locallyModified(fs, name, before)
		if err != nil {
			return nil, err
		}
		if modified {
			slog.Debug("keeping locally modified file", slog.String("path", name))
			kept = append(kept, name)
			continue
		}

		if after == nil {
			if err := removeFile(fs, name); err != nil {
				return nil, err
			}
			continue
		}
		if err := writeFile(fs, name, after); err != nil {
			return nil, err
		}
	}
	return kept, nil
}

// locallyModified reports whether the file on disk differs from before.
// before is nil when the path did not exist in the old tree.
func locallyModified(fs billy.Filesystem, name string, before *object.File) (bool, error) {
	info, err := fs.Lstat(name)
	if errors.Is(err, os.ErrNotExist) {
		return before != nil, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	if before == nil {
		return true, nil
	}

	var data []byte
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := fs.Readlink(name)
		if err != nil {
			return false, fmt.Errorf("failed to read link %s: %w", name, err)
		}
		data = []byte(target)
	} else {
		data, err = util.ReadFile(fs, name)
		if err != nil {
			return false, fmt.Errorf("failed to read %s: %w", name, err)
		}
	}

	return plumbing.ComputeHash(plumbing.BlobObject, data) != before.Hash, nil
}

func writeFile(fs billy.Filesystem, name string, file *object.File) error {
	contents, err := file.Contents()
	if err != nil {
		return fmt.Errorf("failed to read blob for %s: %w", name, err)
	}

	if dir := path.Dir(name); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if file.Mode == filemode.Symlink {
		_ = fs.Remove(name)
		if err := fs.Symlink(contents, name); err != nil {
			return fmt.Errorf("failed to link %s: %w", name, err)
		}
		return nil
	}

	perm, err := file.Mode.ToOSFileMode()
	if err != nil {
		perm = 0o644
	}
	if err := util.WriteFile(fs, name, []byte(contents), perm.Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// removeFile deletes name and any directories left empty by it
func removeFile(fs billy.Filesystem, name string) error {
	if err := fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	for dir := path.Dir(name); dir != "."; dir = path.Dir(dir) {
		entries, err := fs.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := fs.Remove(dir); err != nil {
			break
		}
	}
	return nil
}
