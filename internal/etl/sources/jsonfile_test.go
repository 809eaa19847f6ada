package sources_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewoneill45-ctrl/school-profile/internal/domain"
	"github.com/andrewoneill45-ctrl/school-profile/internal/etl/sources"
)

// ─────────────────────────────────────────────────────────────
// JSON file collection
// ─────────────────────────────────────────────────────────────

func TestJSONFile_LoadSaveInPlace(t *testing.T) {
	path := writeFile(t, "schools.json", "[\n  {\"urn\": \"1\", \"name\": \"A\"}\n]\n")
	col := &sources.JSONFile{Path: path, IDField: domain.IdentifierField}

	store, err := col.Load(context.Background())
	require.NoError(t, err)
	school, ok := store.Lookup("1")
	require.True(t, ok)
	school.SetNumber("attainment8", 52.3)

	size, err := col.Save(context.Background(), store)
	require.NoError(t, err)

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[{"urn":"1","name":"A","attainment8":52.3}]`, string(out))
	assert.Equal(t, int64(len(out)), size)
}

func TestJSONFile_SeparateOutput(t *testing.T) {
	in := writeFile(t, "schools.json", `[{"urn": 7}]`)
	outPath := filepath.Join(t.TempDir(), "enriched.json")
	col := &sources.JSONFile{Path: in, OutputPath: outPath, IDField: domain.IdentifierField}

	store, err := col.Load(context.Background())
	require.NoError(t, err)
	_, err = col.Save(context.Background(), store)
	require.NoError(t, err)

	orig, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, `[{"urn": 7}]`, string(orig), "input is left alone")

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, `[{"urn":7}]`, string(out))
}

func TestJSONFile_LoadErrors(t *testing.T) {
	ctx := context.Background()

	_, err := (&sources.JSONFile{IDField: domain.IdentifierField}).Load(ctx)
	assert.ErrorContains(t, err, "schools path is required")

	_, err = (&sources.JSONFile{Path: filepath.Join(t.TempDir(), "none.json"), IDField: domain.IdentifierField}).Load(ctx)
	assert.Error(t, err)

	_, err = (&sources.JSONFile{Path: writeFile(t, "bad.json", `[{"urn": 1},`), IDField: domain.IdentifierField}).Load(ctx)
	assert.Error(t, err)

	_, err = (&sources.JSONFile{Path: writeFile(t, "obj.json", `{"urn": 1}`), IDField: domain.IdentifierField}).Load(ctx)
	assert.Error(t, err)
}
