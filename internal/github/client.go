// Package github fetches PDF files from GitHub repositories.
package github

import (
	"fmt"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// Client wraps the GitHub API client with rate limiting support
type Client struct {
	*github.Client
}

// ClientOptions configures NewClient. Both fields are optional.
type ClientOptions struct {
	// Token authenticates requests. Without it the public rate limit applies.
	Token string
	// BaseURL points the client at a GitHub Enterprise server.
	BaseURL string
}

// NewClient creates a GitHub client that sleeps through primary and
// secondary rate limits instead of failing.
func NewClient(opts ClientOptions) (*Client, error) {
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	ghClient := github.NewClient(rateLimiter)
	if opts.Token != "" {
		ghClient = ghClient.WithAuthToken(opts.Token)
	}
	if opts.BaseURL != "" {
		ghClient, err = ghClient.WithEnterpriseURLs(opts.BaseURL, opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", opts.BaseURL, err)
		}
	}

	return &Client{Client: ghClient}, nil
}
