package testhelpers

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"
)

// SSHKey is a generated key pair written to disk
type SSHKey struct {
	PrivatePath string
	PublicPath  string
	Public      ssh.PublicKey
}

// GenerateSSHKey writes an unencrypted ed25519 key pair named name into dir.
// A non-empty passphrase encrypts the private key.
func GenerateSSHKey(t *testing.T, dir, name, passphrase string) SSHKey {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "add2git test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "add2git test", []byte(passphrase))
	}
	if err != nil {
		t.Fatalf("Failed to marshal private key: %v", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("Failed to convert public key: %v", err)
	}

	key := SSHKey{
		PrivatePath: filepath.Join(dir, name),
		PublicPath:  filepath.Join(dir, name+".pub"),
		Public:      sshPub,
	}
	if err := os.WriteFile(key.PrivatePath, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatalf("Failed to write private key: %v", err)
	}
	if err := os.WriteFile(key.PublicPath, ssh.MarshalAuthorizedKey(sshPub), 0600); err != nil {
		t.Fatalf("Failed to write public key: %v", err)
	}
	return key
}
