package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"add2git.dev/add2git/internal/actions/sync"
	"add2git.dev/add2git/internal/git"
	"add2git.dev/add2git/internal/output"
	"add2git.dev/add2git/internal/runtime"
)

type rootOptions struct {
	credentialPath string
	message        string
	branch         string
	name           string
	email          string
	logFile        string
	debug          bool
}

// NewRootCmd creates the add2git command
func NewRootCmd(version, commit, date string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "add2git FILE...",
		Short: "Add files to a git repository and push them to origin",
		Long: `Add files to a git repository and push them to origin.

add2git fetches the branch from origin, fast-forwards or merges it into the
local branch (keeping the local version of conflicting files), commits the
given files on top and pushes the result back.`,
		Version:      fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.credentialPath, "credentialpath", "c", "", "Path to the SSH private key (default $HOME/.ssh/id_rsa)")
	cmd.Flags().StringVarP(&opts.message, "commit", "m", "", "Commit message (default \"add FILE...\")")
	cmd.Flags().StringVarP(&opts.branch, "branch", "b", "", "Branch to synchronize (default master)")
	cmd.Flags().StringVar(&opts.name, "name", "", "Author name (default user.name from git config)")
	cmd.Flags().StringVar(&opts.email, "email", "", "Author email (default user.email from git config)")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "Also write a debug log to this file")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Print debug output")

	return cmd
}

func run(cmd *cobra.Command, args []string, opts *rootOptions) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	ctx, err := runtime.GetContext(cmd.Context(), cwd, opts.branch, nil)
	if err != nil {
		return err
	}

	logFile := opts.logFile
	if logFile == "" {
		logFile = ctx.Config.LogFile
	}
	splog, err := output.NewSplogWithConfig(cmd.OutOrStdout(), logFile, opts.debug)
	if err != nil {
		return err
	}
	defer func() { _ = splog.Close() }()
	ctx.Splog = splog
	slog.SetDefault(splog.Logger())

	output.ConfigureColor(cmd.OutOrStdout())

	files, err := repoRelativePaths(cwd, ctx.Repo.GetRepoRoot(), args)
	if err != nil {
		return err
	}

	credentials, err := credentialProvider(opts.credentialPath, ctx)
	if err != nil {
		return err
	}

	message := opts.message
	if message == "" {
		message = "add " + strings.Join(args, " ")
	}

	sig, err := git.ResolveSignature(opts.name, opts.email, git.NewConfigSignatureProvider(ctx.Repo))
	if err != nil {
		return err
	}
	ctx.Signature = sig
	splog.Debug("Committing as %s on %s", sig, ctx.Repo.Branch())

	result, err := sync.Action(ctx, sync.Options{
		Files:       files,
		Message:     message,
		Credentials: credentials,
	})
	if err != nil {
		return err
	}

	splog.Info("Push file(s) successfully")
	splog.Page(output.FormatCommit(result.Tip))
	return nil
}
