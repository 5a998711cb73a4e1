// Package ghcr provides a registry backend for GitHub Container Registry
// package versions.
package ghcr

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ghcr-tools/pkgsweep/client"
	"github.com/ghcr-tools/pkgsweep/internal/core"
)

const (
	DefaultURL = "https://api.github.com"
	kind       = "ghcr"
	perPage    = 100
)

func init() {
	core.Register(kind, DefaultURL, func(baseURL string, d client.Doer) core.Registry {
		return New(baseURL, d)
	})
}

// OwnerKind selects the API path family for the package owner.
type OwnerKind string

const (
	OwnerUser OwnerKind = "users"
	OwnerOrg  OwnerKind = "orgs"
)

type Registry struct {
	baseURL   string
	d         client.Doer
	ownerKind OwnerKind
	urls      *URLs
}

// Option configures a Registry.
type Option func(*Registry)

// WithOwnerKind selects between the user and organization API paths.
func WithOwnerKind(k OwnerKind) Option {
	return func(r *Registry) {
		r.ownerKind = k
	}
}

func New(baseURL string, d client.Doer, opts ...Option) *Registry {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if d == nil {
		d = client.DefaultClient()
	}
	r := &Registry{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		d:         d,
		ownerKind: OwnerUser,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.urls = &URLs{ownerKind: r.ownerKind}
	return r
}

// NewClient returns a client preconfigured for the GitHub API.
func NewClient(token string, opts ...client.Option) *client.Client {
	base := []client.Option{
		client.WithToken(token),
		client.WithHeader("Accept", "application/vnd.github+json"),
		client.WithHeader("X-GitHub-Api-Version", "2022-11-28"),
	}
	return client.NewClient(append(base, opts...)...)
}

func (r *Registry) Kind() string {
	return kind
}

func (r *Registry) URLs() client.URLBuilder {
	return r.urls
}

type versionResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	Metadata  struct {
		PackageType string `json:"package_type"`
		Container   struct {
			Tags []string `json:"tags"`
		} `json:"container"`
	} `json:"metadata"`
}

// ListVersions pages through every stored version of a container package.
// Pages are fetched sequentially; a page that fails after retries fails the
// whole listing, so callers never act on a partial set.
func (r *Registry) ListVersions(ctx context.Context, owner, pkg string) ([]core.RawVersion, error) {
	var records []core.RawVersion
	for page := 1; ; page++ {
		reqURL := fmt.Sprintf("%s/%s/%s/packages/container/%s/versions?per_page=%d&page=%d",
			r.baseURL, r.ownerKind, url.PathEscape(owner), url.PathEscape(pkg), perPage, page)

		var resp []versionResponse
		if err := r.d.GetJSON(ctx, reqURL, &resp); err != nil {
			return nil, &core.ListError{Owner: owner, Package: pkg, Err: err}
		}

		for _, v := range resp {
			records = append(records, core.RawVersion{
				ID:        strconv.FormatInt(v.ID, 10),
				Tags:      v.Metadata.Container.Tags,
				CreatedAt: v.CreatedAt,
			})
		}

		if len(resp) < perPage {
			return records, nil
		}
	}
}

// DeleteVersion permanently deletes one version. A 404 counts as success:
// the version is gone either way. Other failures map to reported reasons
// and never abort the caller's run.
func (r *Registry) DeleteVersion(ctx context.Context, owner, pkg, id string) error {
	reqURL := fmt.Sprintf("%s/%s/%s/packages/container/%s/versions/%s",
		r.baseURL, r.ownerKind, url.PathEscape(owner), url.PathEscape(pkg), url.PathEscape(id))

	err := r.d.Delete(ctx, reqURL)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, client.ErrNotFound):
		return nil
	case errors.Is(err, client.ErrUnauthorized):
		return &core.DeleteError{ID: id, Reason: core.ReasonUnauthorized, Err: err}
	case errors.Is(err, client.ErrRateLimited):
		return &core.DeleteError{ID: id, Reason: core.ReasonRateLimited, Err: err}
	case errors.Is(err, client.ErrUnavailable):
		return &core.DeleteError{ID: id, Reason: core.ReasonUnavailable, Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &core.DeleteError{ID: id, Reason: core.ReasonCanceled, Err: err}
	default:
		return &core.DeleteError{ID: id, Reason: core.ReasonRequestFailed, Err: err}
	}
}

type URLs struct {
	ownerKind OwnerKind
}

func (u *URLs) Package(owner, pkg string) string {
	return fmt.Sprintf("https://github.com/%s/%s/packages/container/package/%s", u.ownerKind, owner, url.PathEscape(pkg))
}

func (u *URLs) Versions(owner, pkg string) string {
	return u.Package(owner, pkg) + "/versions"
}

func (u *URLs) PURL(owner, pkg string) string {
	return fmt.Sprintf("pkg:ghcr/%s/%s", owner, pkg)
}
