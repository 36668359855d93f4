package git

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"

	add2giterrors "add2git.dev/add2git/internal/errors"
)

// Signature is the author identity used for every commit of one run
type Signature struct {
	Name  string
	Email string
}

// At stamps the identity with a time
func (s Signature) At(when time.Time) *object.Signature {
	return &object.Signature{Name: s.Name, Email: s.Email, When: when}
}

func (s Signature) String() string {
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}

// SignatureProvider resolves the default commit identity
type SignatureProvider interface {
	Signature() (Signature, error)
}

// ConfigSignatureProvider reads user.name and user.email from git configuration,
// merging the repository, global and system scopes.
type ConfigSignatureProvider struct {
	repo *Repository
}

// NewConfigSignatureProvider creates a provider backed by repo's configuration
func NewConfigSignatureProvider(repo *Repository) *ConfigSignatureProvider {
	return &ConfigSignatureProvider{repo: repo}
}

// Signature returns the configured identity; missing fields are left empty
func (p *ConfigSignatureProvider) Signature() (Signature, error) {
	cfg, err := p.repo.ConfigScoped(config.SystemScope)
	if err != nil {
		return Signature{}, fmt.Errorf("failed to read git config: %w", err)
	}

	sig := Signature{Name: cfg.User.Name, Email: cfg.User.Email}
	if sig.Name == "" {
		sig.Name = cfg.Author.Name
	}
	if sig.Email == "" {
		sig.Email = cfg.Author.Email
	}
	return sig, nil
}

// ResolveSignature combines explicit values with the provider's defaults.
// The provider is consulted at most once, and only when a value is missing.
func ResolveSignature(name, email string, provider SignatureProvider) (Signature, error) {
	sig := Signature{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}

	if (sig.Name == "" || sig.Email == "") && provider != nil {
		defaults, err := provider.Signature()
		if err != nil {
			return Signature{}, err
		}
		if sig.Name == "" {
			sig.Name = defaults.Name
		}
		if sig.Email == "" {
			sig.Email = defaults.Email
		}
	}

	if sig.Name == "" {
		return Signature{}, add2giterrors.NewValidationError("name", "failed to read user.name from git config, please provide it directly")
	}
	if sig.Email == "" {
		return Signature{}, add2giterrors.NewValidationError("email", "failed to read user.email from git config, please provide it directly")
	}
	return sig, nil
}
