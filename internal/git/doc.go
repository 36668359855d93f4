// Package git implements the synchronization engine behind add2git.
//
// It is built on go-git and provides:
//   - RemoteTransport: authenticated fetch and push against the origin remote
//   - CredentialProvider: SSH key pairs handed to the transport on demand
//   - MergeAnalyzer: up-to-date / fast-forward / normal / unborn classification
//   - MergeExecutor: fast-forwards, path-level three-way merges and branch creation
//   - CommitStager: staging explicit paths and committing them on the branch tip
//
// This package should be the only place where the repository is modified.
package git
