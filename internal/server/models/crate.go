// Package models defines the registry's persisted records and the encoded
// (wire) shapes returned to clients.
package models

import "time"

// NonStandardLicense is stored when a crate ships a license file instead of
// an SPDX expression.
const NonStandardLicense = "non-standard"

// Crate is a row of the crates table. Name is the display form; uniqueness
// is enforced on its canonical form.
type Crate struct {
	ID            int64
	Name          string
	UpdatedAt     time.Time
	CreatedAt     time.Time
	Downloads     int64
	Description   *string
	Homepage      *string
	Documentation *string
	Readme        *string
	License       *string
	Repository    *string
	MaxUploadSize *int64
}

// NewCrate is the field set written by create-or-update. MaxUploadSize is
// only applied on insert; updates never touch it or the name.
type NewCrate struct {
	Name          string
	Description   *string
	Homepage      *string
	Documentation *string
	Readme        *string
	Repository    *string
	License       *string
	MaxUploadSize *int64
}

// Follow subscribes a user to a crate.
type Follow struct {
	UserID  int64
	CrateID int64
}
