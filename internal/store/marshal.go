package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Timestamps are stored as RFC3339Nano UTC TEXT. NULL means unset.
const timeLayout = time.RFC3339Nano

// marshalTime converts a timestamp to its storage form.
func marshalTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// marshalNullTime converts an optional timestamp to its storage form.
func marshalNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return marshalTime(*t)
}

// unmarshalTime parses a stored timestamp.
func unmarshalTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unmarshal time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// unmarshalNullTime parses an optional stored timestamp.
func unmarshalNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := unmarshalTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// marshalNullInt converts an optional int to its storage form.
func marshalNullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// unmarshalNullInt converts a scanned nullable integer.
func unmarshalNullInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}
