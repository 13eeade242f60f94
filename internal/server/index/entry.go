// Package index maintains the git-backed package index: one file per crate,
// one JSON line per published version.
package index

import (
	"path"
	"strings"
)

// Dependency is a dependency as recorded in the index.
type Dependency struct {
	Name            string   `json:"name"`
	Req             string   `json:"req"`
	Features        []string `json:"features"`
	Optional        bool     `json:"optional"`
	DefaultFeatures bool     `json:"default_features"`
	Target          *string  `json:"target"`
	Kind            string   `json:"kind"`
}

// Entry is a single version line of a crate's index file.
type Entry struct {
	Name     string              `json:"name"`
	Vers     string              `json:"vers"`
	Deps     []Dependency        `json:"deps"`
	Cksum    string              `json:"cksum"`
	Features map[string][]string `json:"features"`
	Yanked   bool                `json:"yanked"`
}

// EntryPath computes the index path of a crate file.
func EntryPath(name string) string {
	name = strings.ToLower(name)
	switch len(name) {
	case 1:
		return path.Join("1", name)
	case 2:
		return path.Join("2", name)
	case 3:
		return path.Join("3", string(name[0]), name)
	default:
		return path.Join(name[:2], name[2:4], name)
	}
}
