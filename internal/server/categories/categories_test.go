package categories

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/joaopapereira/crates.io/internal/server/models"
	"github.com/stretchr/testify/require"
)

const catalogue = `
[games]
name = "Games"
description = "Applications for fun."

[game-engines]
name = "Game engines"
description = "Engines."

[game-engines.categories.rendering]
name = "Rendering"
description = "Pixels."
`

func TestParse_FlattensNestedCategories(t *testing.T) {
	got, err := Parse([]byte(catalogue))
	require.NoError(t, err)

	want := []models.Category{
		{Category: "Game engines", Slug: "game-engines", Description: "Engines."},
		{Category: "Game engines::Rendering", Slug: "game-engines::rendering", Description: "Pixels."},
		{Category: "Games", Slug: "games", Description: "Applications for fun."},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "categories.toml")
	require.NoError(t, os.WriteFile(p, []byte(catalogue), 0o600))

	got, err := Load(p)
	require.NoError(t, err)
	require.Len(t, got, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("[games\nname ="))
	require.Error(t, err)
}
