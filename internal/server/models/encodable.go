package models

import (
	"fmt"
	"time"

	packageurl "github.com/package-url/packageurl-go"
)

// EncodableCrate is the wire form of a crate.
type EncodableCrate struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	UpdatedAt     string     `json:"updated_at"`
	CreatedAt     string     `json:"created_at"`
	Downloads     int64      `json:"downloads"`
	MaxVersion    string     `json:"max_version"`
	Description   *string    `json:"description"`
	Homepage      *string    `json:"homepage"`
	Documentation *string    `json:"documentation"`
	License       *string    `json:"license"`
	Repository    *string    `json:"repository"`
	Versions      []int64    `json:"versions,omitempty"`
	Keywords      []string   `json:"keywords,omitempty"`
	Categories    []string   `json:"categories,omitempty"`
	Badges        []Badge    `json:"badges,omitempty"`
	Links         CrateLinks `json:"links"`
	Purl          string     `json:"purl"`
}

type CrateLinks struct {
	VersionDownloads    string  `json:"version_downloads"`
	Versions            *string `json:"versions"`
	Owners              string  `json:"owners"`
	ReverseDependencies string  `json:"reverse_dependencies"`
}

// EncodableVersion is the wire form of a version.
type EncodableVersion struct {
	ID         int64               `json:"id"`
	Crate      string              `json:"crate"`
	Num        string              `json:"num"`
	DlPath     string              `json:"dl_path"`
	ReadmePath string              `json:"readme_path"`
	UpdatedAt  string              `json:"updated_at"`
	CreatedAt  string              `json:"created_at"`
	Downloads  int64               `json:"downloads"`
	Features   map[string][]string `json:"features"`
	Yanked     bool                `json:"yanked"`
	Links      VersionLinks        `json:"links"`
	Purl       string              `json:"purl"`
}

type VersionLinks struct {
	Dependencies     string `json:"dependencies"`
	VersionDownloads string `json:"version_downloads"`
	Authors          string `json:"authors"`
}

// EncodableOwner is the wire form of a user or team owner.
type EncodableOwner struct {
	ID     int64   `json:"id"`
	Login  string  `json:"login"`
	Kind   string  `json:"kind"`
	Name   *string `json:"name"`
	Email  *string `json:"email,omitempty"`
	Avatar *string `json:"avatar"`
	URL    string  `json:"url"`
}

type EncodableDependency struct {
	ID              int64    `json:"id"`
	VersionID       int64    `json:"version_id"`
	CrateID         string   `json:"crate_id"`
	Req             string   `json:"req"`
	Optional        bool     `json:"optional"`
	DefaultFeatures bool     `json:"default_features"`
	Features        []string `json:"features"`
	Target          *string  `json:"target"`
	Kind            string   `json:"kind"`
	Downloads       int64    `json:"downloads"`
}

type EncodableVersionDownload struct {
	Version   int64  `json:"version"`
	Downloads int64  `json:"downloads"`
	Date      string `json:"date"`
}

type EncodableKeyword struct {
	ID        string `json:"id"`
	Keyword   string `json:"keyword"`
	CreatedAt string `json:"created_at"`
	CratesCnt int64  `json:"crates_cnt"`
}

type EncodableCategory struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	CratesCnt   int64  `json:"crates_cnt"`
}

// Meta carries the windowed total of a paginated listing.
type Meta struct {
	Total int64 `json:"total"`
}

// Warnings are non-fatal problems found while publishing.
type Warnings struct {
	InvalidCategories []string `json:"invalid_categories"`
	InvalidBadges     []string `json:"invalid_badges"`
}

// PublishResult is returned by a successful publish.
type PublishResult struct {
	Crate    EncodableCrate `json:"krate"`
	Warnings Warnings       `json:"warnings"`
}

// CrateDetails bundles a crate with the collections embedded in its page.
type CrateDetails struct {
	Crate      EncodableCrate      `json:"crate"`
	Versions   []EncodableVersion  `json:"versions"`
	Keywords   []EncodableKeyword  `json:"keywords"`
	Categories []EncodableCategory `json:"categories"`
}

// CrateList is one page of a crate listing.
type CrateList struct {
	Crates []EncodableCrate `json:"crates"`
	Meta   Meta             `json:"meta"`
}

// ReverseDependencyList is one page of dependents of a crate.
type ReverseDependencyList struct {
	Dependencies []EncodableDependency `json:"dependencies"`
	Meta         Meta                  `json:"meta"`
}

// DownloadStats holds the recent per-version download history of a crate.
type DownloadStats struct {
	VersionDownloads []EncodableVersionDownload `json:"version_downloads"`
	ExtraDownloads   []ExtraDownload            `json:"extra_downloads"`
}

// Summary is the registry front page.
type Summary struct {
	NumDownloads    int64               `json:"num_downloads"`
	NumCrates       int64               `json:"num_crates"`
	NewCrates       []EncodableCrate    `json:"new_crates"`
	MostDownloaded  []EncodableCrate    `json:"most_downloaded"`
	JustUpdated     []EncodableCrate    `json:"just_updated"`
	PopularKeywords []EncodableKeyword  `json:"popular_keywords"`
	PopularCategory []EncodableCategory `json:"popular_categories"`
}

// EncodeTime renders timestamps the way all encodings do.
func EncodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Purl returns the package URL of a crate version.
func Purl(name, version string) string {
	return packageurl.NewPackageURL("cargo", "", name, version, nil, "").ToString()
}

// Encodable builds the wire form of c. When versionIDs is non-nil the
// versions link is omitted since the ids are embedded instead.
func (c *Crate) Encodable(maxVersion string, versionIDs []int64, keywords, categories []string, badges []Badge) EncodableCrate {
	var versionsLink *string
	if versionIDs == nil {
		l := fmt.Sprintf("/api/v1/crates/%s/versions", c.Name)
		versionsLink = &l
	}
	return EncodableCrate{
		ID:            c.Name,
		Name:          c.Name,
		UpdatedAt:     EncodeTime(c.UpdatedAt),
		CreatedAt:     EncodeTime(c.CreatedAt),
		Downloads:     c.Downloads,
		MaxVersion:    maxVersion,
		Description:   c.Description,
		Homepage:      c.Homepage,
		Documentation: c.Documentation,
		License:       c.License,
		Repository:    c.Repository,
		Versions:      versionIDs,
		Keywords:      keywords,
		Categories:    categories,
		Badges:        badges,
		Links: CrateLinks{
			VersionDownloads:    fmt.Sprintf("/api/v1/crates/%s/downloads", c.Name),
			Versions:            versionsLink,
			Owners:              fmt.Sprintf("/api/v1/crates/%s/owners", c.Name),
			ReverseDependencies: fmt.Sprintf("/api/v1/crates/%s/reverse_dependencies", c.Name),
		},
		Purl: Purl(c.Name, maxVersion),
	}
}

// Encodable builds the wire form of v, which belongs to crateName.
func (v *Version) Encodable(crateName string) EncodableVersion {
	features := v.Features
	if features == nil {
		features = map[string][]string{}
	}
	return EncodableVersion{
		ID:         v.ID,
		Crate:      crateName,
		Num:        v.Num,
		DlPath:     fmt.Sprintf("/api/v1/crates/%s/%s/download", crateName, v.Num),
		ReadmePath: fmt.Sprintf("/api/v1/crates/%s/%s/readme", crateName, v.Num),
		UpdatedAt:  EncodeTime(v.UpdatedAt),
		CreatedAt:  EncodeTime(v.CreatedAt),
		Downloads:  v.Downloads,
		Features:   features,
		Yanked:     v.Yanked,
		Links: VersionLinks{
			Dependencies:     fmt.Sprintf("/api/v1/crates/%s/%s/dependencies", crateName, v.Num),
			VersionDownloads: fmt.Sprintf("/api/v1/crates/%s/%s/downloads", crateName, v.Num),
			Authors:          fmt.Sprintf("/api/v1/crates/%s/%s/authors", crateName, v.Num),
		},
		Purl: Purl(crateName, v.Num),
	}
}

// Encodable builds the wire form of o.
func (o Owner) Encodable() EncodableOwner {
	switch o.Kind {
	case OwnerTeam:
		t := o.Team
		return EncodableOwner{
			ID:     t.ID,
			Login:  t.Login,
			Kind:   OwnerTeam.String(),
			Name:   t.Name,
			Avatar: t.Avatar,
			URL:    fmt.Sprintf("https://github.com/%s", t.Org()),
		}
	default:
		u := o.User
		return EncodableOwner{
			ID:     u.ID,
			Login:  u.GhLogin,
			Kind:   OwnerUser.String(),
			Name:   u.Name,
			Email:  u.Email,
			Avatar: u.GhAvatar,
			URL:    fmt.Sprintf("https://github.com/%s", u.GhLogin),
		}
	}
}

// Encodable builds the wire form of a reverse dependency.
func (d *ReverseDependency) Encodable() EncodableDependency {
	return EncodableDependency{
		ID:              d.ID,
		VersionID:       d.VersionID,
		CrateID:         d.CrateName,
		Req:             d.Req,
		Optional:        d.Optional,
		DefaultFeatures: d.DefaultFeatures,
		Features:        d.Features,
		Target:          d.Target,
		Kind:            d.Kind.String(),
		Downloads:       d.CrateDownloads,
	}
}

func (k *Keyword) Encodable() EncodableKeyword {
	return EncodableKeyword{
		ID:        k.Keyword,
		Keyword:   k.Keyword,
		CreatedAt: EncodeTime(k.CreatedAt),
		CratesCnt: k.CratesCnt,
	}
}

func (c *Category) Encodable() EncodableCategory {
	return EncodableCategory{
		ID:          c.Slug,
		Category:    c.Category,
		Slug:        c.Slug,
		Description: c.Description,
		CreatedAt:   EncodeTime(c.CreatedAt),
		CratesCnt:   c.CratesCnt,
	}
}

func (d *VersionDownload) Encodable() EncodableVersionDownload {
	return EncodableVersionDownload{
		Version:   d.VersionID,
		Downloads: d.Downloads,
		Date:      d.Date.Format("2006-01-02"),
	}
}
