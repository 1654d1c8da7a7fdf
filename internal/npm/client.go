// Package npm is a read-only client for npm-compatible package registries.
package npm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/devlink-labs/devlink/internal/branding"
	"github.com/devlink-labs/devlink/internal/resolver"
)

// Registry failure kinds. Errors returned by Client wrap exactly one of them.
var (
	ErrRegistryUnreachable = errors.New("registry unreachable")
	ErrRegistryMalformed   = errors.New("registry response malformed")
	ErrPackageNotFound     = errors.New("package not found")
	ErrNoLatestTag         = errors.New("no latest dist-tag")
)

// LatestTag is the dist-tag a bare install resolves to.
const LatestTag = "latest"

const (
	defaultTimeout = 30 * time.Second
	// Packuments for popular packages run to tens of megabytes.
	maxMetadataBytes = 64 << 20
)

// Client queries a single registry. It performs no retries and keeps no state
// between calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient returns a client for the registry at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  branding.CLIName() + "-cli",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the registry root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// MetadataURL returns <base>/<name> with scoped names escaped as @scope%2Fname.
func (c *Client) MetadataURL(name string) string {
	return c.baseURL + "/" + url.PathEscape(name)
}

// FetchMetadata issues one GET for the package's packument.
func (c *Client) FetchMetadata(ctx context.Context, name string) (*Metadata, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty package name", ErrPackageNotFound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.MetadataURL(name), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrRegistryUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %w", ErrRegistryUnreachable, name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, name)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: registry returned status %d for %s", ErrRegistryUnreachable, resp.StatusCode, name)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %w", ErrRegistryUnreachable, err)
	}

	var meta Metadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("%w: parsing %s metadata: %w", ErrRegistryMalformed, name, err)
	}
	if meta.DistTags == nil || meta.Versions == nil {
		return nil, fmt.Errorf("%w: %s metadata lacks dist-tags or versions", ErrRegistryMalformed, name)
	}
	if meta.Name == "" {
		meta.Name = name
	}
	return &meta, nil
}

// FetchLatestTag returns the version the "latest" dist-tag points to.
func (c *Client) FetchLatestTag(ctx context.Context, name string) (string, error) {
	meta, err := c.FetchMetadata(ctx, name)
	if err != nil {
		return "", err
	}
	v, ok := meta.Tag(LatestTag)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoLatestTag, name)
	}
	return v, nil
}

// Versions returns every published version of name.
func (c *Client) Versions(ctx context.Context, name string) ([]string, error) {
	meta, err := c.FetchMetadata(ctx, name)
	if err != nil {
		return nil, err
	}
	return meta.VersionList(), nil
}

// LatestSemverVersion returns the newest published version compatible with
// ^base, or "" when there is none.
func (c *Client) LatestSemverVersion(ctx context.Context, name, base string) (string, error) {
	versions, err := c.Versions(ctx, name)
	if err != nil {
		return "", err
	}
	return resolver.ResolveAgainstLatest(base, versions), nil
}
