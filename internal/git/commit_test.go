package git_test

import (
	"context"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	add2giterrors "add2git.dev/add2git/internal/errors"
	"add2git.dev/add2git/internal/git"
	"add2git.dev/add2git/testhelpers"
)

func TestCommitStager_AddAndCommit(t *testing.T) {
	t.Run("commits the file on top of the tip", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		tip := testhelpers.Must(scene.Repo.BranchHash("master"))
		require.NoError(t, scene.Repo.WriteFile("a.txt", "hello\n"))

		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)

		hash, err := git.NewCommitStager(repo, testSignature).AddAndCommit(context.Background(), []string{"a.txt"}, "msg")
		require.NoError(t, err)

		testhelpers.ExpectBranchAt(t, scene.Repo, "master", hash)
		testhelpers.ExpectParents(t, scene.Repo, hash, tip)

		commit, err := scene.Repo.Commit(hash)
		require.NoError(t, err)
		require.Equal(t, "msg", commit.Message)
		require.Equal(t, testSignature.Name, commit.Author.Name)
		require.Equal(t, testSignature.Email, commit.Author.Email)
		require.Equal(t, commit.Author, commit.Committer)

		file, err := commit.File("a.txt")
		require.NoError(t, err)
		require.Equal(t, plumbing.ComputeHash(plumbing.BlobObject, []byte("hello\n")), file.Hash)
	})

	t.Run("leaves other modified files out of the commit", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.WriteFile("README.md", "unstaged edit\n"))
		require.NoError(t, scene.Repo.WriteFile("a.txt", "a\n"))

		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)

		hash, err := git.NewCommitStager(repo, testSignature).AddAndCommit(context.Background(), []string{"a.txt"}, "only a")
		require.NoError(t, err)

		commit, err := scene.Repo.Commit(hash)
		require.NoError(t, err)
		readme, err := commit.File("README.md")
		require.NoError(t, err)
		content, err := readme.Contents()
		require.NoError(t, err)
		require.Equal(t, "1\n", content)
		testhelpers.ExpectFileContent(t, scene.Repo, "README.md", "unstaged edit\n")
	})

	t.Run("unchanged content still commits", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		tip := testhelpers.Must(scene.Repo.BranchHash("master"))

		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)

		hash, err := git.NewCommitStager(repo, testSignature).AddAndCommit(context.Background(), []string{"README.md"}, "again")
		require.NoError(t, err)
		require.NotEqual(t, tip, hash)
		testhelpers.ExpectParents(t, scene.Repo, hash, tip)
	})

	t.Run("files in subdirectories", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.WriteFile("docs/guide/intro.md", "intro\n"))

		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)

		hash, err := git.NewCommitStager(repo, testSignature).AddAndCommit(context.Background(), []string{"docs/guide/intro.md"}, "docs")
		require.NoError(t, err)

		commit, err := scene.Repo.Commit(hash)
		require.NoError(t, err)
		_, err = commit.File("docs/guide/intro.md")
		require.NoError(t, err)
	})

	t.Run("missing file is an IOError", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		tip := testhelpers.Must(scene.Repo.BranchHash("master"))

		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)

		_, err = git.NewCommitStager(repo, testSignature).AddAndCommit(context.Background(), []string{"README.md", "missing.txt"}, "msg")
		require.ErrorIs(t, err, add2giterrors.ErrIO)
		testhelpers.ExpectBranchAt(t, scene.Repo, "master", tip)
	})

	t.Run("branch without commits is a StateError", func(t *testing.T) {
		scene := testhelpers.NewScene(t, nil)
		require.NoError(t, scene.Repo.WriteFile("a.txt", "a\n"))

		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)

		_, err = git.NewCommitStager(repo, testSignature).AddAndCommit(context.Background(), []string{"a.txt"}, "msg")
		require.ErrorIs(t, err, add2giterrors.ErrState)
	})

	t.Run("invalid paths", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)
		stager := git.NewCommitStager(repo, testSignature)

		_, err = stager.AddAndCommit(context.Background(), nil, "msg")
		require.ErrorIs(t, err, add2giterrors.ErrValidation)

		_, err = stager.AddAndCommit(context.Background(), []string{"../outside.txt"}, "msg")
		require.ErrorIs(t, err, add2giterrors.ErrValidation)
	})
}
