package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	svcErr "github.com/oggyb/birdie/internal/errors"
)

// Cursor is the opaque keyset state for newest-first lists.
// ID + CreatedMicros establish a stable position. Microseconds match the
// finest precision the supported databases store, so rows sharing the
// boundary row's millisecond are not skipped.
type Cursor struct {
	ID            uint64 `json:"id"`
	CreatedMicros int64  `json:"created_us,omitempty"`
}

// At builds the cursor for a row created at t.
func At(id uint64, t time.Time) Cursor {
	return Cursor{ID: id, CreatedMicros: t.UnixMicro()}
}

// IsZero reports whether c points at the first page.
func (c Cursor) IsZero() bool { return c.ID == 0 }

// CreatedAt is the cursor timestamp in UTC, the zone rows are stored in.
func (c Cursor) CreatedAt() time.Time { return time.UnixMicro(c.CreatedMicros).UTC() }

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → empty cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, svcErr.InvalidInput("invalid pagination token")
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, svcErr.InvalidInput("invalid pagination token")
	}
	return c, nil
}

// Trim cuts a limit+1 result down to limit rows and builds the token for the
// next page from the last row kept. The token is nil on the final page.
func Trim[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, *string) {
	if limit <= 0 || len(rows) <= limit {
		return rows, nil
	}
	rows = rows[:limit]
	token, err := Encode(cursorOf(rows[limit-1]))
	if err != nil {
		return rows, nil
	}
	return rows, &token
}

// Token safely dereferences a pagination token pointer.
func Token(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
