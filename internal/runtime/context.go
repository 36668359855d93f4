package runtime

import (
	"context"
	"fmt"

	"add2git.dev/add2git/internal/config"
	"add2git.dev/add2git/internal/git"
	"add2git.dev/add2git/internal/output"
)

// Context provides access to the repository and output for actions
type Context struct {
	Context   context.Context
	Repo      *git.Repository
	Splog     *output.Splog
	Config    *config.RepoConfig
	Signature git.Signature
}

// NewContext creates a context bound to an already opened repository
func NewContext(ctx context.Context, repo *git.Repository, splog *output.Splog, cfg *config.RepoConfig) *Context {
	if splog == nil {
		splog = output.NewSplog()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Context{
		Context: ctx,
		Repo:    repo,
		Splog:   splog,
		Config:  cfg,
	}
}

// GetContext opens the repository containing dir and loads its configuration.
// An explicit branch overrides the configured one.
func GetContext(ctx context.Context, dir, branch string, splog *output.Splog) (*Context, error) {
	repo, err := git.OpenRepository(dir, "")
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	cfg, err := config.GetRepoConfig(repo.GetRepoRoot())
	if err != nil {
		return nil, err
	}
	if branch != "" {
		cfg.Branch = branch
	}
	repo.SetBranch(cfg.Branch)

	return NewContext(ctx, repo, splog, cfg), nil
}
