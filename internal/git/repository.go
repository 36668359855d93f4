package git

import (
	"errors"
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	add2giterrors "add2git.dev/add2git/internal/errors"
)

// DefaultBranch is the branch synchronized when none is given
const DefaultBranch = "master"

// Repository wraps a go-git repository bound to the branch being synchronized
type Repository struct {
	*gogit.Repository
	path   string
	branch string
}

// AnnotatedCommit is a reference name bound to the commit it resolved to.
// It is one operand of a merge: the local tip or the fetched remote tip.
type AnnotatedCommit struct {
	Ref  plumbing.ReferenceName
	Hash plumbing.Hash
}

func (c *AnnotatedCommit) String() string {
	return fmt.Sprintf("%s (%s)", c.Ref.Short(), c.Hash)
}

// OpenRepository opens the git repository containing path and binds it to branch
func OpenRepository(path, branch string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	if branch == "" {
		branch = DefaultBranch
	}

	root := absPath
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}

	return &Repository{
		Repository: repo,
		path:       root,
		branch:     branch,
	}, nil
}

// GetRepoRoot returns the root directory of the working tree
func (r *Repository) GetRepoRoot() string {
	return r.path
}

// Branch returns the short name of the synchronized branch
func (r *Repository) Branch() string {
	return r.branch
}

// SetBranch rebinds the repository to branch; an empty name selects DefaultBranch
func (r *Repository) SetBranch(branch string) {
	if branch == "" {
		branch = DefaultBranch
	}
	r.branch = branch
}

// BranchRef returns the full reference name of the synchronized branch
func (r *Repository) BranchRef() plumbing.ReferenceName {
	return plumbing.NewBranchReferenceName(r.branch)
}

// EnsureOnBranch checks that HEAD is attached to the synchronized branch.
// An unborn HEAD is accepted while the branch itself does not exist yet, since
// the first fetch creates it.
func (r *Repository) EnsureOnBranch() error {
	head, err := r.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return add2giterrors.NewStateError("failed to read HEAD: %v", err)
	}

	if head.Type() != plumbing.SymbolicReference {
		return add2giterrors.NewStateError("HEAD is detached at %s; check out %s first", head.Hash(), r.branch)
	}

	if head.Target() == r.BranchRef() {
		return nil
	}

	tip, err := r.LocalTip()
	if err != nil {
		return err
	}
	if _, err := r.Storer.Reference(head.Target()); tip == nil && errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil
	}

	return add2giterrors.NewStateError("HEAD is on %s, not %s", head.Target().Short(), r.branch)
}

// LocalTip returns the current tip of the synchronized branch, or nil when the
// branch has no commits yet.
func (r *Repository) LocalTip() (*AnnotatedCommit, error) {
	ref, err := r.Storer.Reference(r.BranchRef())
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", r.BranchRef(), err)
	}
	return &AnnotatedCommit{Ref: ref.Name(), Hash: ref.Hash()}, nil
}

// TipCommit returns the commit object at the tip of the synchronized branch
func (r *Repository) TipCommit() (*object.Commit, error) {
	tip, err := r.LocalTip()
	if err != nil {
		return nil, err
	}
	if tip == nil {
		return nil, add2giterrors.NewStateError("branch %s has no commits", r.branch)
	}
	return r.CommitObject(tip.Hash)
}

// treeOf returns the root tree of the given commit
func (r *Repository) treeOf(hash plumbing.Hash) (*object.Tree, error) {
	commit, err := r.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree of %s: %w", hash, err)
	}
	return tree, nil
}

// setBranch moves the synchronized branch from old to target.
// A zero old hash creates the branch.
func (r *Repository) setBranch(old, target plumbing.Hash) error {
	ref := plumbing.NewHashReference(r.BranchRef(), target)

	var oldRef *plumbing.Reference
	if !old.IsZero() {
		oldRef = plumbing.NewHashReference(r.BranchRef(), old)
	}

	if err := r.Storer.CheckAndSetReference(ref, oldRef); err != nil {
		return fmt.Errorf("failed to update %s: %w", r.BranchRef(), err)
	}
	return nil
}
