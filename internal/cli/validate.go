package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"add2git.dev/add2git/internal/config"
	add2giterrors "add2git.dev/add2git/internal/errors"
	"add2git.dev/add2git/internal/git"
	"add2git.dev/add2git/internal/runtime"
)

// repoRelativePaths checks that every file exists relative to cwd and converts
// it to a path relative to the repository root.
func repoRelativePaths(cwd, repoRoot string, files []string) ([]string, error) {
	rel := make([]string, 0, len(files))
	for _, file := range files {
		abs := file
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(cwd, file)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, add2giterrors.NewValidationError("file", fmt.Sprintf("%s does not exist", file))
		}
		if info.IsDir() {
			return nil, add2giterrors.NewValidationError("file", fmt.Sprintf("%s is a directory", file))
		}

		p, err := filepath.Rel(repoRoot, abs)
		if err != nil || p == ".." || strings.HasPrefix(p, ".."+string(filepath.Separator)) {
			return nil, add2giterrors.NewValidationError("file", fmt.Sprintf("%s is outside the repository", file))
		}
		rel = append(rel, filepath.ToSlash(p))
	}
	return rel, nil
}

// credentialProvider resolves the key path (flag, then config, then $HOME/.ssh/id_rsa)
// and builds the SSH key provider for it.
func credentialProvider(flagPath string, ctx *runtime.Context) (*git.SSHKeyProvider, error) {
	path := flagPath
	if path == "" {
		path = ctx.Config.CredentialPath
	}
	if path == "" {
		def, err := config.DefaultCredentialPath()
		if err != nil {
			return nil, add2giterrors.NewValidationError("credentialpath", fmt.Sprintf("cannot locate home directory: %v", err))
		}
		path = def
	}

	if _, err := os.Stat(path); err != nil {
		return nil, add2giterrors.NewValidationError("credentialpath", fmt.Sprintf("%s does not exist", path))
	}

	provider := git.NewSSHKeyProvider(path, git.PublicKeyPathFor(path))
	provider.User = ctx.Config.SSHUser
	provider.InsecureIgnoreHostKey = ctx.Config.InsecureIgnoreHostKey
	return provider, nil
}
