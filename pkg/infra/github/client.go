package github

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	lru "github.com/hashicorp/golang-lru"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
)

const defaultClientCacheSize = 128

type client struct {
	appID      int64
	privateKey []byte
	baseURL    string
	transport  http.RoundTripper

	// installation id -> *github.Client
	clients *lru.Cache
}

var _ interfaces.GitHubClient = (*client)(nil)

// Option configures the GitHub App client
type Option func(*client)

// WithBaseURL points the client at a GitHub Enterprise or test API endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		c.baseURL = baseURL
	}
}

// WithTransport replaces the underlying HTTP transport
func WithTransport(tr http.RoundTripper) Option {
	return func(c *client) {
		c.transport = tr
	}
}

// NewClient creates a GitHub client that authenticates as each installation
// of the App on demand
func NewClient(appID int64, privateKey []byte, opts ...Option) (interfaces.GitHubClient, error) {
	if appID == 0 {
		return nil, goerr.New("GitHub App ID is required")
	}
	if len(privateKey) == 0 {
		return nil, goerr.New("GitHub App private key is required", goerr.V("app_id", appID))
	}

	cache, err := lru.New(defaultClientCacheSize)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create installation client cache")
	}

	c := &client{
		appID:      appID,
		privateKey: privateKey,
		transport:  http.DefaultTransport,
		clients:    cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClientFromConfig accepts the private key either as PEM content or as a
// path to a PEM file
func NewClientFromConfig(appID int64, privateKey string, opts ...Option) (interfaces.GitHubClient, error) {
	key := []byte(privateKey)
	if !strings.Contains(privateKey, "-----BEGIN") {
		data, err := os.ReadFile(privateKey)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read GitHub App private key file")
		}
		key = data
	}
	return NewClient(appID, key, opts...)
}

func (c *client) forInstallation(installationID int64) (*github.Client, error) {
	if cached, ok := c.clients.Get(installationID); ok {
		return cached.(*github.Client), nil
	}

	itr, err := ghinstallation.New(c.transport, c.appID, installationID, c.privateKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport",
			goerr.V("app_id", c.appID),
			goerr.V("installation_id", installationID),
		)
	}

	gh := github.NewClient(&http.Client{Transport: itr})
	if c.baseURL != "" {
		itr.BaseURL = strings.TrimSuffix(c.baseURL, "/")
		gh, err = gh.WithEnterpriseURLs(c.baseURL, c.baseURL)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to set GitHub base URL", goerr.V("base_url", c.baseURL))
		}
	}

	c.clients.Add(installationID, gh)
	return gh, nil
}

// GetFileContent returns the decoded content of a file at ref
func (c *client) GetFileContent(ctx context.Context, installationID int64, owner, repo, path, ref string) ([]byte, error) {
	gh, err := c.forInstallation(installationID)
	if err != nil {
		return nil, err
	}

	file, _, _, err := gh.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{
		Ref: ref,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get file content",
			goerr.V("owner", owner),
			goerr.V("repo", repo),
			goerr.V("path", path),
			goerr.V("ref", ref),
		)
	}
	if file == nil {
		return nil, goerr.New("path is a directory, not a file",
			goerr.V("owner", owner),
			goerr.V("repo", repo),
			goerr.V("path", path),
		)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode file content", goerr.V("path", path))
	}
	return []byte(content), nil
}
