package core

import (
	"fmt"
	"sort"
)

// SelectForDeletion returns the untagged versions that fall outside the
// retention buffer: everything after the keep newest untagged versions,
// ordered newest-first. Tagged versions are never selected.
//
// Equal timestamps are broken by ID ascending so that repeated runs over the
// same input select an identical set.
func SelectForDeletion(versions []Version, keep int) ([]Version, error) {
	if keep < 0 {
		return nil, fmt.Errorf("%w: keep count %d is negative", ErrInvalidPolicy, keep)
	}

	var untagged []Version
	for _, v := range versions {
		if v.Untagged() {
			untagged = append(untagged, v)
		}
	}

	sort.Slice(untagged, func(i, j int) bool {
		if untagged[i].CreatedAt.Equal(untagged[j].CreatedAt) {
			return untagged[i].ID < untagged[j].ID
		}
		return untagged[i].CreatedAt.After(untagged[j].CreatedAt)
	})

	if keep >= len(untagged) {
		return nil, nil
	}
	return untagged[keep:], nil
}
