package interfaces

import (
	"context"
)

// GitHubClient defines operations for interacting with GitHub API on behalf
// of an installation
type GitHubClient interface {
	// GetFileContent returns the decoded content of a file at ref
	GetFileContent(ctx context.Context, installationID int64, owner, repo, path, ref string) ([]byte, error)
}
