package services

import (
	"sort"

	"github.com/joaopapereira/crates.io/internal/server/models"
)

// badgeRequirements lists, per known badge type, the attributes it needs.
var badgeRequirements = map[string][]string{
	"travis-ci":                         {"repository"},
	"appveyor":                          {"repository"},
	"gitlab":                            {"repository"},
	"is-it-maintained-issue-resolution": {"repository"},
	"is-it-maintained-open-issues":      {"repository"},
	"codecov":                           {"repository"},
	"coveralls":                         {"repository"},
}

// ValidateBadges splits an upload's badges into the ones to store and the
// names of those that are unknown or lack required attributes.
func ValidateBadges(badges map[string]map[string]string) ([]models.Badge, []string) {
	types := make([]string, 0, len(badges))
	for t := range badges {
		types = append(types, t)
	}
	sort.Strings(types)

	valid := make([]models.Badge, 0, len(types))
	invalid := []string{}

	for _, t := range types {
		attrs := badges[t]
		required, known := badgeRequirements[t]
		if !known || !hasAll(attrs, required) {
			invalid = append(invalid, t)
			continue
		}
		valid = append(valid, models.Badge{BadgeType: t, Attributes: attrs})
	}
	return valid, invalid
}

func hasAll(attrs map[string]string, keys []string) bool {
	for _, k := range keys {
		if attrs[k] == "" {
			return false
		}
	}
	return true
}
