package models

import (
	"strings"
	"time"
)

// User is an account authenticated through GitHub.
type User struct {
	ID            int64
	GhLogin       string
	GhID          int64
	Name          *string
	Email         *string
	GhAvatar      *string
	GhAccessToken string
	CreatedAt     time.Time
}

// Team is a GitHub team usable as a crate owner. Login has the form
// "github:org:team".
type Team struct {
	ID       int64
	Login    string
	GithubID int64
	Name     *string
	Avatar   *string
}

// Org returns the organization part of the team login.
func (t *Team) Org() string {
	parts := strings.SplitN(t.Login, ":", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
