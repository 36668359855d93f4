package testhelpers

import (
	"os/exec"
	"testing"
)

// RequireGitBinary skips the test when git is not installed.
// go-git runs git-upload-pack and git-receive-pack for path remotes.
func RequireGitBinary(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not found on PATH")
	}
}
