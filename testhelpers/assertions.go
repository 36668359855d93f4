// Package testhelpers provides testing utilities for add2git,
// including a scene system, go-git repository helpers, and custom assertions.
package testhelpers

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"
)

// Must is a generic helper function that panics if err is not nil,
// otherwise returns the value. Useful in setup code where errors are not expected.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// ExpectBranchAt asserts that a local branch points at hash
func ExpectBranchAt(t *testing.T, repo *GitRepo, branch string, hash plumbing.Hash) {
	t.Helper()
	got, err := repo.BranchHash(branch)
	require.NoError(t, err, "Failed to resolve %s", branch)
	require.Equal(t, hash, got, "Branch %s is not at the expected commit", branch)
}

// ExpectFileContent asserts the working tree content of a file
func ExpectFileContent(t *testing.T, repo *GitRepo, name, expected string) {
	t.Helper()
	got, err := repo.ReadFile(name)
	require.NoError(t, err, "Failed to read %s", name)
	require.Equal(t, expected, got, "Unexpected content in %s", name)
}

// ExpectParents asserts the ordered parent list of a commit
func ExpectParents(t *testing.T, repo *GitRepo, hash plumbing.Hash, parents ...plumbing.Hash) {
	t.Helper()
	commit, err := repo.Commit(hash)
	require.NoError(t, err)
	if len(parents) == 0 {
		require.Empty(t, commit.ParentHashes)
		return
	}
	require.Equal(t, parents, commit.ParentHashes)
}
