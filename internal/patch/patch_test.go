package patch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AhasnaCharumee/BookMate/internal/entities"
)

func TestField_UnmarshalDistinguishesStates(t *testing.T) {
	var p Book
	err := json.Unmarshal([]byte(`{"title":"Dune","genre":null}`), &p)
	require.NoError(t, err)

	assert.True(t, p.Title.IsSet())
	assert.Equal(t, "Dune", p.Title.Value())

	assert.True(t, p.Genre.IsNull())
	assert.False(t, p.Genre.IsSet())

	// Author was absent from the payload entirely.
	assert.True(t, p.Author.Unchanged())
}

func TestChanges_OmittedFieldsAreDropped(t *testing.T) {
	var p Book
	require.NoError(t, json.Unmarshal([]byte(`{"title":"New"}`), &p))

	changes := p.Changes()

	assert.Equal(t, map[string]any{"title": "New"}, changes)
	_, hasAuthor := changes["author"]
	assert.False(t, hasAuthor, "omitted author must not appear in the update")
}

func TestChanges_NullMapsToNil(t *testing.T) {
	var p Book
	require.NoError(t, json.Unmarshal([]byte(`{"lentTo":null,"expectedReturnAt":null}`), &p))

	changes := p.Changes()

	require.Contains(t, changes, "lent_to")
	assert.Nil(t, changes["lent_to"])
	require.Contains(t, changes, "expected_return_at")
	assert.Nil(t, changes["expected_return_at"])
}

func TestChanges_SetValues(t *testing.T) {
	p := Book{
		Status: Set(entities.BookStatusReading),
		IsLent: Set(false),
	}

	changes := p.Changes()

	assert.Equal(t, entities.BookStatusReading, changes["status"])
	assert.Equal(t, false, changes["is_lent"])
	assert.Len(t, changes, 2)
}

func TestField_ZeroValueIsUnchanged(t *testing.T) {
	var f Field[string]
	assert.True(t, f.Unchanged())
	assert.False(t, f.IsSet())
	assert.False(t, f.IsNull())
}
