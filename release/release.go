// Package release defines the build and publish capabilities the packaging
// scripts around the retention tool consume. Image building lives outside
// this module; only version resolution has a local default.
package release

import (
	"context"
	"runtime/debug"
)

// Metadata carries opaque build metadata (labels, build args) to a Builder.
type Metadata map[string]string

// Builder builds and pushes an image for a set of platforms under one tag.
type Builder interface {
	BuildAndPush(ctx context.Context, platforms []string, tag string, meta Metadata) error
}

// VersionResolver produces a human-readable version string for a build.
type VersionResolver interface {
	ResolveVersion(ctx context.Context) (string, error)
}

// BuildInfoResolver resolves the version from embedded module build info,
// falling back to a literal when none is available.
type BuildInfoResolver struct {
	Fallback string
}

func (r BuildInfoResolver) ResolveVersion(_ context.Context) (string, error) {
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v, nil
		}
	}
	if r.Fallback != "" {
		return r.Fallback, nil
	}
	return "dev", nil
}

// StaticResolver always resolves to a fixed version string.
type StaticResolver string

func (r StaticResolver) ResolveVersion(_ context.Context) (string, error) {
	return string(r), nil
}
