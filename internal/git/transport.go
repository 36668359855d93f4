package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	add2giterrors "add2git.dev/add2git/internal/errors"
)

// DefaultRemote is the only remote add2git talks to
const DefaultRemote = "origin"

// FetchHead is the reference recording the tip of the last fetch
const FetchHead plumbing.ReferenceName = "FETCH_HEAD"

// RemoteTransport fetches from and pushes to a single named remote
type RemoteTransport struct {
	repo        *Repository
	remoteName  string
	credentials CredentialProvider
}

// NewRemoteTransport creates a transport for the origin remote of repo
func NewRemoteTransport(repo *Repository, credentials CredentialProvider) *RemoteTransport {
	return &RemoteTransport{
		repo:        repo,
		remoteName:  DefaultRemote,
		credentials: credentials,
	}
}

// RemoteName returns the name of the remote this transport talks to
func (t *RemoteTransport) RemoteName() string {
	return t.remoteName
}

// Fetch downloads the given branches (default: the synchronized branch) and
// returns the fetched tip of the first one. It returns nil without error when
// the remote is empty or does not have the branch yet.
func (t *RemoteTransport) Fetch(ctx context.Context, branches ...string) (*AnnotatedCommit, error) {
	if len(branches) == 0 {
		branches = []string{t.repo.Branch()}
	}

	remote, err := t.repo.Remote(t.remoteName)
	if err != nil {
		return nil, add2giterrors.NewStateError("remote %s is not configured: %v", t.remoteName, err)
	}

	auth, err := t.credentials.Credential(ctx)
	if err != nil {
		return nil, err
	}

	specs := make([]config.RefSpec, 0, len(branches))
	for _, branch := range branches {
		specs = append(specs, config.RefSpec(fmt.Sprintf("+%s:%s",
			plumbing.NewBranchReferenceName(branch),
			plumbing.NewRemoteReferenceName(t.remoteName, branch))))
	}

	slog.Debug("fetch start", slog.String("remote", t.remoteName), slog.Any("refspecs", specs))
	err = remote.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: t.remoteName,
		RefSpecs:   specs,
		Auth:       auth,
	})
	switch {
	case err == nil, errors.Is(err, gogit.NoErrAlreadyUpToDate):
	case errors.Is(err, transport.ErrEmptyRemoteRepository), errors.Is(err, gogit.NoMatchingRefSpecError{}):
		slog.Debug("fetch found no remote branch", slog.String("remote", t.remoteName), slog.String("branch", branches[0]))
		return nil, nil
	default:
		return nil, classifyTransportError("fetch", t.remoteName, err)
	}

	trackingRef := plumbing.NewRemoteReferenceName(t.remoteName, branches[0])
	ref, err := t.repo.Storer.Reference(trackingRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s after fetch: %w", trackingRef, err)
	}

	if err := t.repo.Storer.SetReference(plumbing.NewHashReference(FetchHead, ref.Hash())); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", FetchHead, err)
	}

	slog.Debug("fetch done", slog.String("ref", trackingRef.String()), slog.String("hash", ref.Hash().String()))
	return &AnnotatedCommit{Ref: trackingRef, Hash: ref.Hash()}, nil
}

// Push sends the local branch to the identically named branch on the remote.
// A remote that moved since the last fetch yields a RejectedError; no force or retry is attempted.
func (t *RemoteTransport) Push(ctx context.Context, branch string) error {
	if branch == "" {
		branch = t.repo.Branch()
	}

	remote, err := t.repo.Remote(t.remoteName)
	if err != nil {
		return add2giterrors.NewStateError("remote %s is not configured: %v", t.remoteName, err)
	}

	auth, err := t.credentials.Credential(ctx)
	if err != nil {
		return err
	}

	ref := plumbing.NewBranchReferenceName(branch)
	spec := config.RefSpec(fmt.Sprintf("%s:%s", ref, ref))

	slog.Debug("push start", slog.String("remote", t.remoteName), slog.String("refspec", spec.String()))
	err = remote.PushContext(ctx, &gogit.PushOptions{
		RemoteName: t.remoteName,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       auth,
	})
	switch {
	case err == nil, errors.Is(err, gogit.NoErrAlreadyUpToDate):
		return nil
	case isRejected(err):
		return add2giterrors.NewRejectedError(t.remoteName, branch, err)
	default:
		return classifyTransportError("push", t.remoteName, err)
	}
}

// classifyTransportError maps a go-git transport failure onto AuthError or NetworkError
func classifyTransportError(op, remote string, err error) error {
	if isAuthFailure(err) {
		return add2giterrors.NewAuthError(op, remote, err)
	}
	return add2giterrors.NewNetworkError(op, remote, err)
}

func isAuthFailure(err error) bool {
	if errors.Is(err, transport.ErrAuthenticationRequired) || errors.Is(err, transport.ErrAuthorizationFailed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "permission denied")
}

func isRejected(err error) bool {
	if errors.Is(err, gogit.ErrForceNeeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "non-fast-forward") ||
		strings.Contains(msg, "fetch first")
}
