package models

import "fmt"

// DependencyKind mirrors cargo's dependency sections.
type DependencyKind int

const (
	KindNormal DependencyKind = iota
	KindBuild
	KindDev
)

func (k DependencyKind) String() string {
	switch k {
	case KindBuild:
		return "build"
	case KindDev:
		return "dev"
	default:
		return "normal"
	}
}

// ParseDependencyKind maps the upload's kind string; empty means normal.
func ParseDependencyKind(s string) (DependencyKind, error) {
	switch s {
	case "", "normal":
		return KindNormal, nil
	case "build":
		return KindBuild, nil
	case "dev":
		return KindDev, nil
	default:
		return KindNormal, fmt.Errorf("invalid dependency kind `%s`", s)
	}
}

// Dependency is an edge from a version to the crate it depends on.
type Dependency struct {
	ID              int64
	VersionID       int64
	CrateID         int64
	Req             string
	Optional        bool
	DefaultFeatures bool
	Features        []string
	Target          *string
	Kind            DependencyKind
}

// NewDependency is a dependency as described by an upload, before its
// target crate has been resolved.
type NewDependency struct {
	Name            string   `json:"name"`
	VersionReq      string   `json:"version_req"`
	Features        []string `json:"features"`
	Optional        bool     `json:"optional"`
	DefaultFeatures bool     `json:"default_features"`
	Target          *string  `json:"target"`
	Kind            string   `json:"kind"`
}

// ReverseDependency is a dependency on some crate together with the name
// and download count of the crate that declares it.
type ReverseDependency struct {
	Dependency
	CrateName      string
	CrateDownloads int64
}
