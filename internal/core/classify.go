package core

import "time"

// Classify parses raw registry records into Versions. Tagged/untagged status
// is preserved as a field, not filtered, so the policy engine and auditing
// both see the full set.
//
// The first record with an unparseable timestamp fails the whole
// classification with a MalformedRecordError.
func Classify(records []RawVersion) ([]Version, error) {
	versions := make([]Version, 0, len(records))
	for _, r := range records {
		createdAt, err := time.Parse(time.RFC3339, r.CreatedAt)
		if err != nil {
			return nil, &MalformedRecordError{ID: r.ID, Field: "created_at", Value: r.CreatedAt}
		}
		versions = append(versions, Version{
			ID:        r.ID,
			Tags:      r.Tags,
			CreatedAt: createdAt,
		})
	}
	return versions, nil
}
