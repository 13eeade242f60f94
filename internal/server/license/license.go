// Package license validates SPDX license expressions.
package license

import (
	"strings"

	"github.com/github/go-spdx/v2/spdxexp"
	"github.com/joaopapereira/crates.io/internal/common"
)

// SPDX validates a single license expression fragment.
type SPDX struct{}

func (SPDX) Validate(expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return common.Human("empty license expression")
	}
	if ok, _ := spdxexp.ValidateLicenses([]string{expr}); !ok {
		return common.Human("unknown license `%s`, see http://opensource.org/licenses for options, "+
			"and http://spdx.org/licenses/ for their identifiers", expr)
	}
	return nil
}
