package models

import "strings"

// UploadMetadata is the JSON half of a publish envelope.
type UploadMetadata struct {
	Name          string                       `json:"name"`
	Vers          string                       `json:"vers"`
	Deps          []NewDependency              `json:"deps"`
	Features      map[string][]string          `json:"features"`
	Authors       []string                     `json:"authors"`
	Description   *string                      `json:"description"`
	Homepage      *string                      `json:"homepage"`
	Documentation *string                      `json:"documentation"`
	Readme        *string                      `json:"readme"`
	Keywords      []string                     `json:"keywords"`
	Categories    []string                     `json:"categories"`
	License       *string                      `json:"license"`
	LicenseFile   *string                      `json:"license_file"`
	Repository    *string                      `json:"repository"`
	Badges        map[string]map[string]string `json:"badges"`
}

// MissingFields lists the required fields that are absent or blank, in a
// fixed order, so they can be reported together.
func (m *UploadMetadata) MissingFields() []string {
	var missing []string
	if blank(m.Description) {
		missing = append(missing, "description")
	}
	if blank(m.License) && blank(m.LicenseFile) {
		missing = append(missing, "license")
	}
	hasAuthor := false
	for _, a := range m.Authors {
		if strings.TrimSpace(a) != "" {
			hasAuthor = true
			break
		}
	}
	if !hasAuthor {
		missing = append(missing, "authors")
	}
	return missing
}

// NewCrate extracts the crate-level fields of the upload.
func (m *UploadMetadata) NewCrate() NewCrate {
	return NewCrate{
		Name:          m.Name,
		Description:   m.Description,
		Homepage:      m.Homepage,
		Documentation: m.Documentation,
		Readme:        m.Readme,
		Repository:    m.Repository,
		License:       m.License,
	}
}

// HasLicenseFile reports whether the upload names a license file.
func (m *UploadMetadata) HasLicenseFile() bool {
	return !blank(m.LicenseFile)
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
