package testhelpers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Test identity written to every repository created here
const (
	TestUserName  = "Test User"
	TestUserEmail = "test@example.com"
)

// GitRepo represents a Git repository for testing purposes
type GitRepo struct {
	Dir  string
	Repo *gogit.Repository

	clock time.Time
}

// NewGitRepo initializes a new non-bare repository on master in dir
func NewGitRepo(dir string) (*GitRepo, error) {
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to init repo: %w", err)
	}
	return wrap(dir, repo)
}

// CloneGitRepo clones url into dir
func CloneGitRepo(dir, url string) (*GitRepo, error) {
	repo, err := gogit.PlainClone(dir, false, &gogit.CloneOptions{URL: url})
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", url, err)
	}
	return wrap(dir, repo)
}

func wrap(dir string, repo *gogit.Repository) (*GitRepo, error) {
	cfg, err := repo.Config()
	if err != nil {
		return nil, err
	}
	cfg.User.Name = TestUserName
	cfg.User.Email = TestUserEmail
	if err := repo.SetConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to configure user: %w", err)
	}

	return &GitRepo{
		Dir:   dir,
		Repo:  repo,
		clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

// nextSignature returns the test identity one minute later than the previous one
func (r *GitRepo) nextSignature() *object.Signature {
	r.clock = r.clock.Add(time.Minute)
	return &object.Signature{Name: TestUserName, Email: TestUserEmail, When: r.clock}
}

// WriteFile writes content to name in the working tree without staging it
func (r *GitRepo) WriteFile(name, content string) error {
	path := filepath.Join(r.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// ReadFile returns the working tree content of name
func (r *GitRepo) ReadFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.Dir, filepath.FromSlash(name)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CommitFile writes a file, stages it and commits it on the current branch
func (r *GitRepo) CommitFile(name, content, message string) (plumbing.Hash, error) {
	return r.CommitFiles(map[string]string{name: content}, message)
}

// CommitFiles writes and stages every file, then commits them on the current branch
func (r *GitRepo) CommitFiles(files map[string]string, message string) (plumbing.Hash, error) {
	wt, err := r.Repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	for name, content := range files {
		if err := r.WriteFile(name, content); err != nil {
			return plumbing.ZeroHash, err
		}
		if _, err := wt.Add(name); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to add %s: %w", name, err)
		}
	}
	sig := r.nextSignature()
	return wt.Commit(message, &gogit.CommitOptions{Author: sig, Committer: sig})
}

// RemoveAndCommit deletes a tracked file and commits the removal
func (r *GitRepo) RemoveAndCommit(name, message string) (plumbing.Hash, error) {
	wt, err := r.Repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := wt.Remove(name); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to remove %s: %w", name, err)
	}
	sig := r.nextSignature()
	return wt.Commit(message, &gogit.CommitOptions{Author: sig, Committer: sig})
}

// CommitTree stores a commit whose tree holds exactly files and the given parents.
// Names may contain "/" for nested directories. No reference is moved; use
// SetBranch to point a branch at the result.
func (r *GitRepo) CommitTree(files map[string]string, message string, parents ...plumbing.Hash) (plumbing.Hash, error) {
	treeHash, err := r.storeTree(files)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	sig := r.nextSignature()
	commit := &object.Commit{
		Author:       *sig,
		Committer:    *sig,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: parents,
	}
	commitObj := r.Repo.Storer.NewEncodedObject()
	if err := commit.Encode(commitObj); err != nil {
		return plumbing.ZeroHash, err
	}
	return r.Repo.Storer.SetEncodedObject(commitObj)
}

// storeTree writes the tree objects for files, recursing into directories
func (r *GitRepo) storeTree(files map[string]string) (plumbing.Hash, error) {
	blobs := map[string]string{}
	dirs := map[string]map[string]string{}
	for name, content := range files {
		dir, rest, nested := strings.Cut(name, "/")
		if !nested {
			blobs[name] = content
			continue
		}
		if dirs[dir] == nil {
			dirs[dir] = map[string]string{}
		}
		dirs[dir][rest] = content
	}

	tree := &object.Tree{}
	for name, content := range blobs {
		if _, ok := dirs[name]; ok {
			return plumbing.ZeroHash, fmt.Errorf("%s is both a file and a directory", name)
		}
		blob, err := r.storeBlob(content)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		tree.Entries = append(tree.Entries, object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: blob})
	}
	for name, children := range dirs {
		sub, err := r.storeTree(children)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		tree.Entries = append(tree.Entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: sub})
	}

	// git orders directories as if their names ended in "/"
	sortKey := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	sort.Slice(tree.Entries, func(i, j int) bool {
		return sortKey(tree.Entries[i]) < sortKey(tree.Entries[j])
	})

	obj := r.Repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return r.Repo.Storer.SetEncodedObject(obj)
}

func (r *GitRepo) storeBlob(content string) (plumbing.Hash, error) {
	obj := r.Repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write([]byte(content)); err != nil {
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return r.Repo.Storer.SetEncodedObject(obj)
}

// SetBranch points refs/heads/<branch> at hash
func (r *GitRepo) SetBranch(branch string, hash plumbing.Hash) error {
	return r.Repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), hash))
}

// CheckoutBranch attaches HEAD to branch, creating it at the current HEAD when create is set
func (r *GitRepo) CheckoutBranch(branch string, create bool) error {
	wt, err := r.Repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: create,
	})
}

// CheckoutDetached detaches HEAD at hash
func (r *GitRepo) CheckoutDetached(hash plumbing.Hash) error {
	wt, err := r.Repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Checkout(&gogit.CheckoutOptions{Hash: hash})
}

// BranchHash returns the tip of a local branch
func (r *GitRepo) BranchHash(branch string) (plumbing.Hash, error) {
	ref, err := r.Repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return ref.Hash(), nil
}

// Commit returns the commit object for hash
func (r *GitRepo) Commit(hash plumbing.Hash) (*object.Commit, error) {
	return r.Repo.CommitObject(hash)
}

// CountCommits returns the number of commits reachable from hash
func (r *GitRepo) CountCommits(hash plumbing.Hash) (int, error) {
	iter, err := r.Repo.Log(&gogit.LogOptions{From: hash})
	if err != nil {
		return 0, err
	}
	count := 0
	err = iter.ForEach(func(*object.Commit) error {
		count++
		return nil
	})
	return count, err
}

// CreateBareRemote creates a bare repository next to the working repository
// and registers it as remote name. Returns the path to the bare repository.
func (r *GitRepo) CreateBareRemote(name string) (string, error) {
	bareDir := r.Dir + "-" + name + ".git"
	if _, err := gogit.PlainInit(bareDir, true); err != nil {
		return "", fmt.Errorf("failed to create bare repo: %w", err)
	}

	if _, err := r.Repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{bareDir},
	}); err != nil {
		return "", fmt.Errorf("failed to add remote: %w", err)
	}

	return bareDir, nil
}

// PushBranch pushes a branch to the identically named branch on remote
func (r *GitRepo) PushBranch(remote, branch string) error {
	ref := plumbing.NewBranchReferenceName(branch)
	err := r.Repo.Push(&gogit.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("%s:%s", ref, ref))},
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return fmt.Errorf("push failed: %w", err)
	}
	return nil
}

// RemoteBranchHash opens the repository at path and returns the tip of branch
func RemoteBranchHash(path, branch string) (plumbing.Hash, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return ref.Hash(), nil
}
