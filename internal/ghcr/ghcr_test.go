package ghcr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ghcr-tools/pkgsweep/client"
	"github.com/ghcr-tools/pkgsweep/internal/core"
)

func testClient() *client.Client {
	return client.NewClient(client.WithBaseDelay(10 * time.Millisecond))
}

func versionJSON(id int64, tags []string, createdAt string) map[string]any {
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"id":         id,
		"name":       fmt.Sprintf("sha256:%064d", id),
		"created_at": createdAt,
		"metadata": map[string]any{
			"package_type": "container",
			"container":    map[string]any{"tags": tags},
		},
	}
}

func TestListVersions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/acme/packages/container/widget/versions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		resp := []map[string]any{
			versionJSON(101, []string{"latest", "v2.1"}, "2024-04-26T16:09:06Z"),
			versionJSON(102, nil, "2024-04-25T08:00:00Z"),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	reg := New(server.URL, testClient())
	records, err := reg.ListVersions(context.Background(), "acme", "widget")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "101" {
		t.Errorf("ID = %q, want %q", records[0].ID, "101")
	}
	if len(records[0].Tags) != 2 || records[0].Tags[0] != "latest" {
		t.Errorf("unexpected tags: %v", records[0].Tags)
	}
	if len(records[1].Tags) != 0 {
		t.Errorf("expected no tags, got %v", records[1].Tags)
	}
	if records[1].CreatedAt != "2024-04-25T08:00:00Z" {
		t.Errorf("CreatedAt = %q, want raw timestamp", records[1].CreatedAt)
	}
}

func TestListVersionsPaginated(t *testing.T) {
	var pagesServed []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if got := r.URL.Query().Get("per_page"); got != "100" {
			t.Errorf("per_page = %q, want 100", got)
		}
		pagesServed = append(pagesServed, page)

		count := 100
		if page == 2 {
			count = 37
		}
		resp := make([]map[string]any, 0, count)
		for i := range count {
			id := int64((page-1)*100 + i + 1)
			resp = append(resp, versionJSON(id, nil, "2024-04-25T08:00:00Z"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	reg := New(server.URL, testClient())
	records, err := reg.ListVersions(context.Background(), "acme", "widget")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}

	if len(records) != 137 {
		t.Errorf("expected 137 records, got %d", len(records))
	}
	if len(pagesServed) != 2 || pagesServed[0] != 1 || pagesServed[1] != 2 {
		t.Errorf("pages served = %v, want [1 2]", pagesServed)
	}
}

func TestListVersionsOrgPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orgs/acme/packages/container/widget/versions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("[]"))
	}))
	defer server.Close()

	reg := New(server.URL, testClient(), WithOwnerKind(OwnerOrg))
	if _, err := reg.ListVersions(context.Background(), "acme", "widget"); err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
}

func TestListVersionsFailureWrapsListError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	reg := New(server.URL, client.NewClient(
		client.WithBaseDelay(10*time.Millisecond),
		client.WithMaxRetries(1),
	))
	_, err := reg.ListVersions(context.Background(), "acme", "widget")

	var listErr *core.ListError
	if !errors.As(err, &listErr) {
		t.Fatalf("expected ListError, got %v", err)
	}
	if listErr.Owner != "acme" || listErr.Package != "widget" {
		t.Errorf("ListError target = %s/%s, want acme/widget", listErr.Owner, listErr.Package)
	}
	if !errors.Is(err, client.ErrUnavailable) {
		t.Errorf("expected wrapped ErrUnavailable, got %v", err)
	}
}

func TestDeleteVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("Method = %s, want DELETE", r.Method)
		}
		if r.URL.Path != "/users/acme/packages/container/widget/versions/101" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	reg := New(server.URL, testClient())
	if err := reg.DeleteVersion(context.Background(), "acme", "widget", "101"); err != nil {
		t.Fatalf("DeleteVersion failed: %v", err)
	}
}

func TestDeleteVersionAlreadyGone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	reg := New(server.URL, testClient())
	if err := reg.DeleteVersion(context.Background(), "acme", "widget", "101"); err != nil {
		t.Errorf("expected 404 to count as deleted, got %v", err)
	}
}

func TestDeleteVersionFailureReasons(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
		reason string
	}{
		{"unauthorized", http.StatusUnauthorized, nil, core.ReasonUnauthorized},
		{"forbidden", http.StatusForbidden, nil, core.ReasonUnauthorized},
		{"rate limited", http.StatusTooManyRequests, nil, core.ReasonRateLimited},
		{"quota exhausted", http.StatusForbidden, map[string]string{"X-RateLimit-Remaining": "0"}, core.ReasonRateLimited},
		{"server error", http.StatusInternalServerError, nil, core.ReasonUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for name, value := range tt.header {
					w.Header().Set(name, value)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			reg := New(server.URL, client.NewClient(
				client.WithBaseDelay(10*time.Millisecond),
				client.WithMaxRetries(1),
			))
			err := reg.DeleteVersion(context.Background(), "acme", "widget", "101")

			var delErr *core.DeleteError
			if !errors.As(err, &delErr) {
				t.Fatalf("expected DeleteError, got %v", err)
			}
			if delErr.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", delErr.Reason, tt.reason)
			}
			if delErr.ID != "101" {
				t.Errorf("ID = %q, want %q", delErr.ID, "101")
			}
		})
	}
}

func TestURLBuilder(t *testing.T) {
	reg := New("", nil)
	urls := reg.URLs()

	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{"package", func() string { return urls.Package("acme", "widget") }, "https://github.com/users/acme/packages/container/package/widget"},
		{"versions", func() string { return urls.Versions("acme", "widget") }, "https://github.com/users/acme/packages/container/package/widget/versions"},
		{"purl", func() string { return urls.PURL("acme", "widget") }, "pkg:ghcr/acme/widget"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn()
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
