package models

import "time"

// Keyword tags crates; matching is case-insensitive.
type Keyword struct {
	ID        int64
	Keyword   string
	CratesCnt int64
	CreatedAt time.Time
}

// Category is a node of the category tree; child slugs are joined to
// their parent with "::".
type Category struct {
	ID          int64
	Category    string
	Slug        string
	Description string
	CratesCnt   int64
	CreatedAt   time.Time
}

// Badge is a CI or maintenance badge shown on a crate page.
type Badge struct {
	BadgeType  string
	Attributes map[string]string
}

// VersionDownload is the download counter of one version on one day.
type VersionDownload struct {
	VersionID int64
	Downloads int64
	Counted   int64
	Date      time.Time
}

// ExtraDownload aggregates downloads of versions not listed individually.
type ExtraDownload struct {
	Date      string `json:"date"`
	Downloads int64  `json:"downloads"`
}
