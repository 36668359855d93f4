package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"add2git.dev/add2git/testhelpers"
)

func clearEnv(t *testing.T) {
	t.Setenv(EnvBranch, "")
	t.Setenv(EnvCredentialPath, "")
	t.Setenv(EnvLogFile, "")
}

func TestGetRepoConfig(t *testing.T) {
	t.Run("defaults when the file does not exist", func(t *testing.T) {
		scene := testhelpers.NewScene(t, nil)
		clearEnv(t)

		cfg, err := GetRepoConfig(scene.Dir)
		require.NoError(t, err)
		require.Equal(t, DefaultBranch, cfg.Branch)
		require.Equal(t, DefaultSSHUser, cfg.SSHUser)
		require.Empty(t, cfg.CredentialPath)
		require.False(t, cfg.InsecureIgnoreHostKey)
	})

	t.Run("reads the yaml file", func(t *testing.T) {
		scene := testhelpers.NewScene(t, nil)
		clearEnv(t)

		content := "branch: release\ncredential_path: /keys/deploy\nssh_user: deploy\ninsecure_ignore_host_key: true\n"
		require.NoError(t, os.WriteFile(Path(scene.Dir), []byte(content), 0600))

		cfg, err := GetRepoConfig(scene.Dir)
		require.NoError(t, err)
		require.Equal(t, "release", cfg.Branch)
		require.Equal(t, "/keys/deploy", cfg.CredentialPath)
		require.Equal(t, "deploy", cfg.SSHUser)
		require.True(t, cfg.InsecureIgnoreHostKey)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		scene := testhelpers.NewScene(t, nil)
		clearEnv(t)
		require.NoError(t, os.WriteFile(Path(scene.Dir), []byte("branch: release\n"), 0600))

		t.Setenv(EnvBranch, "hotfix")
		t.Setenv(EnvLogFile, "/tmp/add2git.log")

		cfg, err := GetRepoConfig(scene.Dir)
		require.NoError(t, err)
		require.Equal(t, "hotfix", cfg.Branch)
		require.Equal(t, "/tmp/add2git.log", cfg.LogFile)
	})

	t.Run("malformed file", func(t *testing.T) {
		scene := testhelpers.NewScene(t, nil)
		clearEnv(t)
		require.NoError(t, os.WriteFile(Path(scene.Dir), []byte("branch: [unterminated\n"), 0600))

		_, err := GetRepoConfig(scene.Dir)
		require.Error(t, err)
	})
}

func TestDefaultCredentialPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := DefaultCredentialPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".ssh", "id_rsa"), path)
}
