package git_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/stretchr/testify/require"

	add2giterrors "add2git.dev/add2git/internal/errors"
	"add2git.dev/add2git/internal/git"
	"add2git.dev/add2git/testhelpers"
)

// pathCredentials serves path remotes, which take no authentication
type pathCredentials struct {
	calls int
}

func (c *pathCredentials) Credential(context.Context) (transport.AuthMethod, error) {
	c.calls++
	return nil, nil
}

func TestRemoteTransport_Fetch(t *testing.T) {
	t.Run("returns the remote tip and records FETCH_HEAD", func(t *testing.T) {
		testhelpers.RequireGitBinary(t)
		scene := testhelpers.NewScene(t, testhelpers.RemoteSceneSetup)
		tip := testhelpers.Must(scene.Repo.BranchHash("master"))

		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)
		creds := &pathCredentials{}

		fetched, err := git.NewRemoteTransport(repo, creds).Fetch(context.Background())
		require.NoError(t, err)
		require.NotNil(t, fetched)
		require.Equal(t, tip, fetched.Hash)
		require.Equal(t, plumbing.NewRemoteReferenceName("origin", "master"), fetched.Ref)
		require.Equal(t, 1, creds.calls)

		head, err := repo.Storer.Reference(git.FetchHead)
		require.NoError(t, err)
		require.Equal(t, tip, head.Hash())
	})

	t.Run("fetching twice without remote changes is stable", func(t *testing.T) {
		testhelpers.RequireGitBinary(t)
		scene := testhelpers.NewScene(t, testhelpers.RemoteSceneSetup)

		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)
		remote := git.NewRemoteTransport(repo, &pathCredentials{})

		first, err := remote.Fetch(context.Background(), "master")
		require.NoError(t, err)
		second, err := remote.Fetch(context.Background(), "master")
		require.NoError(t, err)
		require.Equal(t, first, second)

		tip, err := repo.LocalTip()
		require.NoError(t, err)
		analysis, err := git.NewMergeAnalyzer(repo).Classify(tip, second)
		require.NoError(t, err)
		require.Equal(t, git.AnalysisUpToDate, analysis)
	})

	t.Run("empty remote yields no tip", func(t *testing.T) {
		testhelpers.RequireGitBinary(t)
		scene := testhelpers.NewScene(t, func(s *testhelpers.Scene) error {
			if err := testhelpers.BasicSceneSetup(s); err != nil {
				return err
			}
			_, err := s.Repo.CreateBareRemote("origin")
			return err
		})

		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)

		fetched, err := git.NewRemoteTransport(repo, &pathCredentials{}).Fetch(context.Background())
		require.NoError(t, err)
		require.Nil(t, fetched)
	})

	t.Run("remote without the branch yields no tip", func(t *testing.T) {
		testhelpers.RequireGitBinary(t)
		scene := testhelpers.NewScene(t, testhelpers.RemoteSceneSetup)

		repo, err := git.OpenRepository(scene.Dir, "release")
		require.NoError(t, err)

		fetched, err := git.NewRemoteTransport(repo, &pathCredentials{}).Fetch(context.Background())
		require.NoError(t, err)
		require.Nil(t, fetched)
	})

	t.Run("missing remote", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)

		_, err = git.NewRemoteTransport(repo, &pathCredentials{}).Fetch(context.Background())
		require.ErrorIs(t, err, add2giterrors.ErrState)
	})

	t.Run("unreachable remote is a NetworkError", func(t *testing.T) {
		testhelpers.RequireGitBinary(t)
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		_, err := scene.Repo.CreateBareRemote("origin")
		require.NoError(t, err)
		require.NoError(t, os.RemoveAll(scene.RemotePath()))

		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)

		_, err = git.NewRemoteTransport(repo, &pathCredentials{}).Fetch(context.Background())
		require.ErrorIs(t, err, add2giterrors.ErrNetwork)
	})

	t.Run("credential failures stop the fetch", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		_, err := scene.Repo.CreateBareRemote("origin")
		require.NoError(t, err)

		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)

		provider := git.NewSSHKeyProvider(filepath.Join(scene.Home, ".ssh", "id_rsa"), "")
		_, err = git.NewRemoteTransport(repo, provider).Fetch(context.Background())
		require.ErrorIs(t, err, add2giterrors.ErrCredential)
	})
}

func TestRemoteTransport_Push(t *testing.T) {
	t.Run("publishes the branch to an empty remote", func(t *testing.T) {
		testhelpers.RequireGitBinary(t)
		scene := testhelpers.NewScene(t, func(s *testhelpers.Scene) error {
			if err := testhelpers.BasicSceneSetup(s); err != nil {
				return err
			}
			_, err := s.Repo.CreateBareRemote("origin")
			return err
		})
		tip := testhelpers.Must(scene.Repo.BranchHash("master"))

		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)

		require.NoError(t, git.NewRemoteTransport(repo, &pathCredentials{}).Push(context.Background(), "master"))
		require.Equal(t, tip, testhelpers.Must(testhelpers.RemoteBranchHash(scene.RemotePath(), "master")))
	})

	t.Run("nothing new to push succeeds", func(t *testing.T) {
		testhelpers.RequireGitBinary(t)
		scene := testhelpers.NewScene(t, testhelpers.RemoteSceneSetup)

		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)
		require.NoError(t, git.NewRemoteTransport(repo, &pathCredentials{}).Push(context.Background(), ""))
	})

	t.Run("remote moved since the fetch", func(t *testing.T) {
		testhelpers.RequireGitBinary(t)
		scene := testhelpers.NewScene(t, testhelpers.RemoteSceneSetup)

		repo, err := git.OpenRepository(scene.Dir, "master")
		require.NoError(t, err)
		remote := git.NewRemoteTransport(repo, &pathCredentials{})

		_, err = remote.Fetch(context.Background())
		require.NoError(t, err)

		// Someone else pushes in between
		other, err := testhelpers.CloneGitRepo(filepath.Join(t.TempDir(), "other"), scene.RemotePath())
		require.NoError(t, err)
		theirs, err := other.CommitFile("theirs.txt", "theirs\n", "third party")
		require.NoError(t, err)
		require.NoError(t, other.PushBranch("origin", "master"))

		_, err = scene.Repo.CommitFile("mine.txt", "mine\n", "local")
		require.NoError(t, err)

		err = remote.Push(context.Background(), "master")
		require.ErrorIs(t, err, add2giterrors.ErrRejected)

		var rejected *add2giterrors.RejectedError
		require.ErrorAs(t, err, &rejected)
		require.Equal(t, "master", rejected.Branch)
		require.Equal(t, theirs, testhelpers.Must(testhelpers.RemoteBranchHash(scene.RemotePath(), "master")))
	})
}
