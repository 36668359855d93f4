package runtime_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"add2git.dev/add2git/internal/config"
	"add2git.dev/add2git/internal/runtime"
	"add2git.dev/add2git/testhelpers"
)

func TestGetContext(t *testing.T) {
	t.Run("finds the repository root from a subdirectory", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		t.Setenv(config.EnvBranch, "")
		sub := filepath.Join(scene.Dir, "a", "b")
		require.NoError(t, os.MkdirAll(sub, 0750))
		require.NoError(t, os.WriteFile(config.Path(scene.Dir), []byte("branch: release\n"), 0600))

		ctx, err := runtime.GetContext(context.Background(), sub, "", nil)
		require.NoError(t, err)
		require.Equal(t, scene.Dir, ctx.Repo.GetRepoRoot())
		require.Equal(t, "release", ctx.Repo.Branch())
		require.Equal(t, "release", ctx.Config.Branch)
		require.NotNil(t, ctx.Splog)
	})

	t.Run("explicit branch overrides the configuration", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		t.Setenv(config.EnvBranch, "")
		require.NoError(t, os.WriteFile(config.Path(scene.Dir), []byte("branch: release\n"), 0600))

		ctx, err := runtime.GetContext(context.Background(), scene.Dir, "hotfix", nil)
		require.NoError(t, err)
		require.Equal(t, "hotfix", ctx.Repo.Branch())
	})

	t.Run("defaults to master", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		t.Setenv(config.EnvBranch, "")

		ctx, err := runtime.GetContext(context.Background(), scene.Dir, "", nil)
		require.NoError(t, err)
		require.Equal(t, config.DefaultBranch, ctx.Repo.Branch())
	})

	t.Run("outside a repository", func(t *testing.T) {
		_, err := runtime.GetContext(context.Background(), t.TempDir(), "", nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "not a git repository")
	})
}
