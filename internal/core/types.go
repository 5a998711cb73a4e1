// Package core provides shared types, the retention policy engine, and the
// registry backend system.
package core

import (
	"fmt"
	"time"
)

// RawVersion is one package version record as returned by a registry,
// before classification. The timestamp is kept unparsed so that a bad
// record can be reported instead of silently dropped.
type RawVersion struct {
	ID        string
	Tags      []string
	CreatedAt string
}

// Version is a classified package version.
type Version struct {
	ID        string
	Tags      []string
	CreatedAt time.Time
}

// Untagged reports whether the version has no tags attached.
// Untagged versions are the only candidates for retention cleanup.
func (v Version) Untagged() bool {
	return len(v.Tags) == 0
}

// RetentionPolicy identifies a target package and the number of untagged
// versions to preserve. Supplied per run, never persisted.
type RetentionPolicy struct {
	Owner     string
	Package   string
	KeepCount int
}

// Validate rejects misconfigured policies before any I/O happens.
func (p RetentionPolicy) Validate() error {
	if p.KeepCount < 0 {
		return fmt.Errorf("%w: keep count %d is negative", ErrInvalidPolicy, p.KeepCount)
	}
	if p.Owner == "" || p.Package == "" {
		return fmt.Errorf("%w: owner and package are required", ErrInvalidPolicy)
	}
	return nil
}
