package release

import (
	"context"
	"testing"
)

func TestStaticResolver(t *testing.T) {
	v, err := StaticResolver("v2.1.0").ResolveVersion(context.Background())
	if err != nil {
		t.Fatalf("ResolveVersion failed: %v", err)
	}
	if v != "v2.1.0" {
		t.Errorf("version = %q, want %q", v, "v2.1.0")
	}
}

func TestBuildInfoResolverFallback(t *testing.T) {
	// Test binaries carry a (devel) main version, so the fallback applies
	v, err := BuildInfoResolver{Fallback: "v0.0.0-dev"}.ResolveVersion(context.Background())
	if err != nil {
		t.Fatalf("ResolveVersion failed: %v", err)
	}
	if v != "v0.0.0-dev" {
		t.Errorf("version = %q, want fallback", v)
	}
}

func TestBuildInfoResolverDefault(t *testing.T) {
	v, err := BuildInfoResolver{}.ResolveVersion(context.Background())
	if err != nil {
		t.Fatalf("ResolveVersion failed: %v", err)
	}
	if v == "" {
		t.Error("expected a non-empty version")
	}
}
