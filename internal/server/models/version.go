package models

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// Version is a published version of a crate. Versions are immutable except
// for the yanked flag.
type Version struct {
	ID        int64
	CrateID   int64
	Num       string
	UpdatedAt time.Time
	CreatedAt time.Time
	Downloads int64
	Features  map[string][]string
	Authors   []string
	Yanked    bool
}

// ParseVersion checks that num is a full MAJOR.MINOR.PATCH semantic version
// (pre-release and build metadata allowed) and returns it unchanged.
func ParseVersion(num string) (string, error) {
	v := "v" + num
	if !semver.IsValid(v) {
		return "", fmt.Errorf("invalid semver: `%s`", num)
	}
	core := v
	if i := strings.IndexByte(core, '+'); i >= 0 {
		core = core[:i]
	}
	// semver.IsValid accepts shorthands such as "v1.2"
	if semver.Canonical(v) != core {
		return "", fmt.Errorf("invalid semver: `%s`", num)
	}
	return num, nil
}

// CompareVersions orders two version numbers by semver precedence.
func CompareVersions(a, b string) int {
	return semver.Compare("v"+a, "v"+b)
}

// MaxVersion returns the highest of nums, or "0.0.0" when nums is empty.
func MaxVersion(nums []string) string {
	max := "0.0.0"
	for _, n := range nums {
		if CompareVersions(n, max) > 0 {
			max = n
		}
	}
	return max
}
