// Package patch models partial updates as explicit three-state fields.
//
// A field in an incoming update is either left out entirely (Unchanged),
// carries a value (Set), or is an explicit JSON null (Null, "clear this
// field"). Flattening a patch keeps only the intended changes, so a caller
// updating one field can never clobber the others with absence.
package patch

import (
	"encoding/json"
	"time"

	"github.com/AhasnaCharumee/BookMate/internal/entities"
)

// Field is a three-state update value: unchanged, set to a value, or
// explicitly cleared to null. The zero value means unchanged.
type Field[T any] struct {
	value   T
	set     bool
	cleared bool
}

// Set returns a field carrying a new value.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// Null returns a field that clears the stored value.
func Null[T any]() Field[T] {
	return Field[T]{cleared: true}
}

// IsSet reports whether the field carries a new value.
func (f Field[T]) IsSet() bool { return f.set }

// IsNull reports whether the field is an explicit clear.
func (f Field[T]) IsNull() bool { return f.cleared }

// Unchanged reports whether the field was omitted from the update.
func (f Field[T]) Unchanged() bool { return !f.set && !f.cleared }

// Value returns the carried value. Only meaningful when IsSet.
func (f Field[T]) Value() T { return f.value }

// UnmarshalJSON distinguishes an explicit null from a value. Absent keys
// are never unmarshalled at all, which leaves the zero (unchanged) state.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Field[T]{cleared: true}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Field[T]{value: v, set: true}
	return nil
}

// MarshalJSON renders the carried value, or null for cleared fields.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.set {
		return json.Marshal(f.value)
	}
	return []byte("null"), nil
}

// Book is a partial update to a book record. Omitted fields stay untouched.
type Book struct {
	Title            Field[string]              `json:"title"`
	Author           Field[string]              `json:"author"`
	Status           Field[entities.BookStatus] `json:"status"`
	Genre            Field[string]              `json:"genre"`
	Description      Field[string]              `json:"description"`
	FrontCoverURI    Field[string]              `json:"frontCoverUri"`
	BackCoverURI     Field[string]              `json:"backCoverUri"`
	IsLent           Field[bool]                `json:"isLent"`
	LentTo           Field[string]              `json:"lentTo"`
	LentAt           Field[time.Time]           `json:"lentAt"`
	ExpectedReturnAt Field[string]              `json:"expectedReturnAt"`
}

// Changes flattens the patch to a column/value map containing only the
// fields the caller intends to change. Null fields map to nil so the store
// writes NULL; unchanged fields are absent from the map entirely.
func (p Book) Changes() map[string]any {
	changes := make(map[string]any)
	put(changes, "title", p.Title)
	put(changes, "author", p.Author)
	put(changes, "status", p.Status)
	put(changes, "genre", p.Genre)
	put(changes, "description", p.Description)
	put(changes, "front_cover_uri", p.FrontCoverURI)
	put(changes, "back_cover_uri", p.BackCoverURI)
	put(changes, "is_lent", p.IsLent)
	put(changes, "lent_to", p.LentTo)
	put(changes, "lent_at", p.LentAt)
	put(changes, "expected_return_at", p.ExpectedReturnAt)
	return changes
}

func put[T any](changes map[string]any, column string, f Field[T]) {
	switch {
	case f.IsSet():
		changes[column] = f.Value()
	case f.IsNull():
		changes[column] = nil
	}
}
