package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"golang.org/x/crypto/ssh"

	add2giterrors "add2git.dev/add2git/internal/errors"
)

// DefaultSSHUser is the user name presented to SSH remotes
const DefaultSSHUser = "git"

// PublicKeySuffix is appended to a private key path to locate its public half
const PublicKeySuffix = ".pub"

// CredentialProvider produces the credential used to authenticate a transport operation.
// Implementations must return an equivalent credential on every call.
type CredentialProvider interface {
	Credential(ctx context.Context) (transport.AuthMethod, error)
}

// SSHKeyProvider loads an SSH key pair from disk each time it is asked for a credential
type SSHKeyProvider struct {
	User           string
	PrivateKeyPath string
	// PublicKeyPath is optional. When set, the file must hold the public half of the private key.
	PublicKeyPath string
	// InsecureIgnoreHostKey skips known_hosts verification.
	InsecureIgnoreHostKey bool
}

// NewSSHKeyProvider creates an SSHKeyProvider for the default SSH user
func NewSSHKeyProvider(privateKeyPath, publicKeyPath string) *SSHKeyProvider {
	return &SSHKeyProvider{
		User:           DefaultSSHUser,
		PrivateKeyPath: privateKeyPath,
		PublicKeyPath:  publicKeyPath,
	}
}

// Credential parses the key pair and returns go-git public key authentication
func (p *SSHKeyProvider) Credential(_ context.Context) (transport.AuthMethod, error) {
	pemBytes, err := os.ReadFile(p.PrivateKeyPath)
	if err != nil {
		return nil, add2giterrors.NewCredentialError(p.PrivateKeyPath, err)
	}

	signer, err := ssh.ParsePrivateKey(pemBytes)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, add2giterrors.NewCredentialError(p.PrivateKeyPath, fmt.Errorf("passphrase protected keys are not supported"))
		}
		return nil, add2giterrors.NewCredentialError(p.PrivateKeyPath, err)
	}

	if p.PublicKeyPath != "" {
		if err := verifyPublicKey(p.PublicKeyPath, signer); err != nil {
			return nil, err
		}
	}

	user := p.User
	if user == "" {
		user = DefaultSSHUser
	}

	auth := &gitssh.PublicKeys{User: user, Signer: signer}
	if p.InsecureIgnoreHostKey {
		auth.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	}
	return auth, nil
}

// verifyPublicKey checks that the authorized_keys formatted file at path matches signer
func verifyPublicKey(path string, signer ssh.Signer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return add2giterrors.NewCredentialError(path, err)
	}

	pub, _, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return add2giterrors.NewCredentialError(path, err)
	}

	if !bytes.Equal(pub.Marshal(), signer.PublicKey().Marshal()) {
		return add2giterrors.NewCredentialError(path, fmt.Errorf("public key does not match private key"))
	}
	return nil
}

// PublicKeyPathFor returns the conventional public key path for privateKeyPath,
// or "" when no such file exists.
func PublicKeyPathFor(privateKeyPath string) string {
	candidate := privateKeyPath + PublicKeySuffix
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}
