package sqlutil

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// Helper functions for converting between Go types and nullable column types.

// ToNullTime converts a time pointer to sql.NullTime.
func ToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// FromNullTime converts sql.NullTime to a time pointer.
func FromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// ToNullUUID converts a UUID pointer to uuid.NullUUID.
func ToNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// FromNullUUID converts uuid.NullUUID to a UUID pointer.
func FromNullUUID(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}

// ToNullString converts a string pointer to sql.NullString.
func ToNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// FromNullString converts sql.NullString to a string pointer.
func FromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// ToNullJSON marshals v into a pqtype.NullRawMessage for a nullable
// JSONB column. A nil v produces an SQL NULL.
func ToNullJSON(v any) (pqtype.NullRawMessage, error) {
	if v == nil {
		return pqtype.NullRawMessage{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}

// FromNullJSON unmarshals a nullable JSONB column into dst.
// Returns false when the column was NULL.
func FromNullJSON(raw pqtype.NullRawMessage, dst any) (bool, error) {
	if !raw.Valid {
		return false, nil
	}
	if err := json.Unmarshal(raw.RawMessage, dst); err != nil {
		return false, err
	}
	return true, nil
}
