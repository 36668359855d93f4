package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFile is the repository configuration file, stored inside .git
	ConfigFile = "add2git.yaml"

	// DefaultBranch is the branch synchronized when nothing else is configured
	DefaultBranch = "master"

	// DefaultSSHUser is the user presented to SSH remotes
	DefaultSSHUser = "git"
)

// Environment variables overriding the configuration file
const (
	EnvBranch         = "ADD2GIT_BRANCH"
	EnvCredentialPath = "ADD2GIT_CREDENTIAL_PATH"
	EnvLogFile        = "ADD2GIT_LOG_FILE"
)

// RepoConfig represents the repository configuration
type RepoConfig struct {
	Branch                string `yaml:"branch,omitempty"`
	CredentialPath        string `yaml:"credential_path,omitempty"`
	LogFile               string `yaml:"log_file,omitempty"`
	SSHUser               string `yaml:"ssh_user,omitempty"`
	InsecureIgnoreHostKey bool   `yaml:"insecure_ignore_host_key,omitempty"`

	path string
}

// Path returns the configuration file location for repoRoot
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", ConfigFile)
}

// Default returns a configuration with only the defaults applied
func Default() *RepoConfig {
	cfg := &RepoConfig{}
	cfg.applyDefaults()
	return cfg
}

// GetRepoConfig reads the repository configuration and applies environment overrides.
// A missing file yields the defaults.
func GetRepoConfig(repoRoot string) (*RepoConfig, error) {
	cfg := &RepoConfig{path: Path(repoRoot)}

	data, err := os.ReadFile(cfg.path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", cfg.path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", cfg.path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *RepoConfig) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvBranch)); v != "" {
		c.Branch = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCredentialPath)); v != "" {
		c.CredentialPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		c.LogFile = v
	}
}

func (c *RepoConfig) applyDefaults() {
	if c.Branch == "" {
		c.Branch = DefaultBranch
	}
	if c.SSHUser == "" {
		c.SSHUser = DefaultSSHUser
	}
}

// DefaultCredentialPath returns the standard private key location in the user's home
func DefaultCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ssh", "id_rsa"), nil
}
