package cache

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/dbfill/pkg/dbfill"
)

func sampleMap() *dbfill.SchemaMap {
	tag := dbfill.NewEntityRecord(7, "Tag", nil)
	tag.Simple.Set("name", "CharField")
	tag.Simple.Set("color", "CharField")

	related := "recipes"
	recipe := dbfill.NewEntityRecord(9, "Рецепт", &related)
	recipe.Simple.Set("text", "TextField")
	recipe.FK.Set("author", 4)
	recipe.MTM.Set("tags", dbfill.ManyToManyRecord{ContentTypeID: 7, RelatedName: "recipes"})

	group := dbfill.NewOrderedMap[*dbfill.EntityRecord]()
	group.Set("tag", tag)
	group.Set("recipe", recipe)

	m := dbfill.NewSchemaMap()
	m.Set("foodgram", group)
	return m
}

func TestNewWriter_Defaults(t *testing.T) {
	w := NewWriter("", "")
	assert.Equal(t, dbfill.DefaultCacheFilename, w.Path())

	w = NewWriter("/var/cache", "out.json")
	assert.Equal(t, filepath.Join("/var/cache", "out.json"), w.Path())
}

func TestEncode_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleMap()))

	want := `{
  "foodgram": {
    "tag": {
      "contenttype_id": 7,
      "model_name": "Tag",
      "default_related_name": null,
      "simple": {
        "name": "CharField",
        "color": "CharField"
      },
      "fk": {},
      "mtm": {}
    },
    "recipe": {
      "contenttype_id": 9,
      "model_name": "Рецепт",
      "default_related_name": "recipes",
      "simple": {
        "text": "TextField"
      },
      "fk": {
        "author": 4
      },
      "mtm": {
        "tags": {
          "contenttype_id": 7,
          "related_name": "recipes"
        }
      }
    }
  }
}
`
	assert.Equal(t, want, buf.String())
}

func TestWriter_WriteAndRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	w := NewWriter(dir, "cache.json")

	path, err := w.Write(sampleMap())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cache.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	back, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"foodgram"}, back.Keys())
	group, _ := back.Get("foodgram")
	assert.Equal(t, []string{"tag", "recipe"}, group.Keys())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestWriter_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, dbfill.DefaultCacheFilename)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	_, err := NewWriter(dir, "").Write(sampleMap())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestWriter_Deterministic(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "")

	path, err := w.Write(sampleMap())
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = w.Write(sampleMap())
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestWriter_Errors(t *testing.T) {
	_, err := NewWriter(t.TempDir(), "").Write(nil)
	assert.Error(t, err)

	// A regular file where the directory should be
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	_, err = NewWriter(filepath.Join(blocker, "sub"), "").Write(sampleMap())
	assert.Error(t, err)
}

func TestRead_Errors(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))
	_, err = Read(path)
	assert.Error(t, err)
}
