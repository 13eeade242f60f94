// Package categories loads the category catalogue from TOML.
//
// The file is a table of categories keyed by slug; a category may nest
// subcategories under a "categories" table:
//
//	[game-engines]
//	name = "Game engines"
//	description = "..."
//
//	[game-engines.categories.rendering]
//	name = "Rendering"
//	description = "..."
//
// Nested slugs are joined with "::", e.g. "game-engines::rendering".
package categories

import (
	"fmt"
	"os"
	"sort"

	"github.com/joaopapereira/crates.io/internal/server/models"
	"github.com/pelletier/go-toml/v2"
)

type node struct {
	Name        string          `toml:"name"`
	Description string          `toml:"description"`
	Categories  map[string]node `toml:"categories"`
}

// Parse decodes a catalogue and flattens it, parents before children and
// slugs sorted within each level.
func Parse(data []byte) ([]models.Category, error) {
	var root map[string]node
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	var out []models.Category
	flatten("", "", root, &out)
	return out, nil
}

// Load reads and parses the catalogue at path.
func Load(path string) ([]models.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func flatten(slugPrefix, namePrefix string, nodes map[string]node, out *[]models.Category) {
	slugs := make([]string, 0, len(nodes))
	for s := range nodes {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)

	for _, s := range slugs {
		n := nodes[s]
		slug, name := s, n.Name
		if slugPrefix != "" {
			slug = slugPrefix + "::" + s
			name = namePrefix + "::" + n.Name
		}
		*out = append(*out, models.Category{Category: name, Slug: slug, Description: n.Description})
		flatten(slug, name, n.Categories, out)
	}
}
