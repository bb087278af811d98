package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/dbfill/pkg/dbfill"
)

func TestNewSnapshot_OrderAndLookup(t *testing.T) {
	snap, err := NewSnapshot(nil,
		&dbfill.EntityType{Group: "blog", Type: "post", ID: 3},
		&dbfill.EntityType{Group: "accounts", Type: "user", ID: 1},
		&dbfill.EntityType{Group: "blog", Type: "tag", ID: 2},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"blog", "accounts"}, snap.Groups())
	require.Len(t, snap.Types("blog"), 2)
	assert.Equal(t, "post", snap.Types("blog")[0].Type)
	assert.Equal(t, "tag", snap.Types("blog")[1].Type)
	assert.Empty(t, snap.Types("missing"))

	et, ok := snap.Lookup(dbfill.TypeRef{Group: "accounts", Type: "user"})
	require.True(t, ok)
	assert.Equal(t, dbfill.StableID(1), et.ID)

	id, ok := snap.StableID(dbfill.TypeRef{Group: "blog", Type: "tag"})
	require.True(t, ok)
	assert.Equal(t, dbfill.StableID(2), id)

	_, ok = snap.StableID(dbfill.TypeRef{Group: "blog", Type: "comment"})
	assert.False(t, ok)

	_, ok = snap.Actor()
	assert.False(t, ok)
	assert.Equal(t, 3, snap.Len())
}

func TestNewSnapshot_AssignsMissingIDs(t *testing.T) {
	snap, err := NewSnapshot(nil,
		&dbfill.EntityType{Group: "blog", Type: "post"},
		&dbfill.EntityType{Group: "blog", Type: "tag", ID: 10},
		&dbfill.EntityType{Group: "shop", Type: "item"},
	)
	require.NoError(t, err)

	post, _ := snap.StableID(dbfill.TypeRef{Group: "blog", Type: "post"})
	item, _ := snap.StableID(dbfill.TypeRef{Group: "shop", Type: "item"})
	assert.Equal(t, dbfill.StableID(11), post)
	assert.Equal(t, dbfill.StableID(12), item)
}

func TestNewSnapshot_CopiesInput(t *testing.T) {
	et := &dbfill.EntityType{Group: "blog", Type: "post", ID: 1, Name: "Post"}
	snap, err := NewSnapshot(nil, et)
	require.NoError(t, err)

	et.Name = "Changed"
	got, _ := snap.Lookup(dbfill.TypeRef{Group: "blog", Type: "post"})
	assert.Equal(t, "Post", got.Name)
}

func TestNewSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name  string
		types []*dbfill.EntityType
	}{
		{"duplicate type", []*dbfill.EntityType{
			{Group: "blog", Type: "post"},
			{Group: "blog", Type: "post"},
		}},
		{"duplicate id", []*dbfill.EntityType{
			{Group: "blog", Type: "post", ID: 5},
			{Group: "blog", Type: "tag", ID: 5},
		}},
		{"missing group", []*dbfill.EntityType{{Type: "post"}}},
		{"missing type", []*dbfill.EntityType{{Group: "blog"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSnapshot(nil, tt.types...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, dbfill.ErrRegistry))
		})
	}
}

func TestSnapshot_WithActor(t *testing.T) {
	snap, err := NewSnapshot(nil,
		&dbfill.EntityType{Group: "accounts", Type: "user", ID: 1},
	)
	require.NoError(t, err)

	user := dbfill.TypeRef{Group: "accounts", Type: "user"}
	withActor, err := snap.WithActor(user)
	require.NoError(t, err)

	actor, ok := withActor.Actor()
	require.True(t, ok)
	assert.Equal(t, user, actor)
	_, ok = snap.Actor()
	assert.False(t, ok, "the original snapshot is unchanged")

	_, err = snap.WithActor(dbfill.TypeRef{Group: "accounts", Type: "admin"})
	assert.True(t, errors.Is(err, dbfill.ErrRegistry))
}
