// Package pkgsweep prunes untagged container-registry package versions,
// keeping a fixed-size buffer of the newest ones.
//
// The package enumerates every stored version of a package through a
// paginated registry API, classifies each as tagged or untagged, retains the
// keep-count newest untagged versions, and deletes the rest, reporting a
// per-item outcome.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/ghcr-tools/pkgsweep"
//		_ "github.com/ghcr-tools/pkgsweep/all"
//	)
//
//	reg, err := pkgsweep.New("ghcr", "", pkgsweep.DefaultClient())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	records, err := reg.ListVersions(context.Background(), "acme", "widget")
//	if err != nil {
//		log.Fatal(err)
//	}
//	versions, err := pkgsweep.Classify(records)
//	if err != nil {
//		log.Fatal(err)
//	}
//	doomed, err := pkgsweep.SelectForDeletion(versions, 100)
//
// The sweep subpackage drives a full run including deletion and reporting.
package pkgsweep

import (
	"fmt"

	"github.com/git-pkgs/purl"

	"github.com/ghcr-tools/pkgsweep/client"
	"github.com/ghcr-tools/pkgsweep/internal/core"
)

// Re-export types from internal/core
type (
	// Registry is the interface implemented by all registry backends.
	Registry = core.Registry

	// RawVersion is one unparsed version record from a registry.
	RawVersion = core.RawVersion

	// Version is a classified package version.
	Version = core.Version

	// RetentionPolicy identifies a target package and its keep count.
	RetentionPolicy = core.RetentionPolicy
)

// Re-export types from client
type (
	// Client is an HTTP client with retry logic for registry APIs.
	Client = client.Client

	// Doer is the request surface registry backends use.
	Doer = client.Doer

	// URLBuilder constructs human-facing URLs for a registry package.
	URLBuilder = client.URLBuilder
)

// Re-export errors
var (
	ErrInvalidPolicy = core.ErrInvalidPolicy
	ErrNotFound      = client.ErrNotFound
	ErrUnauthorized  = client.ErrUnauthorized
	ErrRateLimited   = client.ErrRateLimited
	ErrUnavailable   = client.ErrUnavailable
)

// Error types
type (
	ListError            = core.ListError
	MalformedRecordError = core.MalformedRecordError
	DeleteError          = core.DeleteError
	HTTPError            = client.HTTPError
)

// Classify parses raw registry records into Versions, failing fast on the
// first malformed record.
func Classify(records []RawVersion) ([]Version, error) {
	return core.Classify(records)
}

// SelectForDeletion returns the untagged versions beyond the keep newest.
func SelectForDeletion(versions []Version, keep int) ([]Version, error) {
	return core.SelectForDeletion(versions, keep)
}

// New creates a registry backend of the given kind.
// If baseURL is empty, the backend's default API URL is used.
// If d is nil, DefaultClient() is used.
//
// Supported kinds: "ghcr" (import the all subpackage to register backends).
func New(kind string, baseURL string, d Doer) (Registry, error) {
	return core.New(kind, baseURL, d)
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 4 retries with exponential backoff on 429 and 5xx responses
// - 10 requests/second pacing
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

// Option configures a Client.
type Option = client.Option

// WithToken sets the bearer token sent with every request.
var WithToken = client.WithToken

// WithTimeout sets the per-request HTTP timeout.
var WithTimeout = client.WithTimeout

// WithMaxRetries sets the maximum number of retries.
var WithMaxRetries = client.WithMaxRetries

// SupportedKinds returns all registered backend kinds.
// Note: backends must be imported to be registered.
func SupportedKinds() []string {
	return core.SupportedKinds()
}

// DefaultURL returns the default API URL for a backend kind.
func DefaultURL(kind string) string {
	return core.DefaultURL(kind)
}

// BuildURLs returns a map of all non-empty URLs for a package.
// Keys are "package", "versions", and "purl".
func BuildURLs(urls URLBuilder, owner, pkg string) map[string]string {
	return client.BuildURLs(urls, owner, pkg)
}

// PURL represents a parsed Package URL.
type PURL = purl.PURL

// ParseTarget parses a package target PURL such as pkg:ghcr/acme/widget
// into its backend kind, owner, and package name.
func ParseTarget(target string) (kind, owner, pkg string, err error) {
	p, err := purl.Parse(target)
	if err != nil {
		return "", "", "", fmt.Errorf("parsing target %q: %w", target, err)
	}
	if p.Namespace == "" {
		return "", "", "", fmt.Errorf("target %q has no owner component", target)
	}
	return p.Type, p.Namespace, p.Name, nil
}

// NewFromTarget creates a registry backend from a target PURL and returns
// the parsed owner and package name.
func NewFromTarget(target string, d Doer) (Registry, string, string, error) {
	kind, owner, pkg, err := ParseTarget(target)
	if err != nil {
		return nil, "", "", err
	}
	reg, err := New(kind, "", d)
	if err != nil {
		return nil, "", "", err
	}
	return reg, owner, pkg, nil
}
