// Package config manages add2git configuration.
//
// It handles:
//   - The optional per-repository file .git/add2git.yaml
//   - Environment overrides (ADD2GIT_*)
package config
