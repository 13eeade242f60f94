package license

import (
	"testing"

	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestSPDX_Validate(t *testing.T) {
	v := SPDX{}
	for _, ok := range []string{"MIT", "Apache-2.0", " MIT ", "MIT OR Apache-2.0", "GPL-3.0-only"} {
		assert.NoError(t, v.Validate(ok), ok)
	}
	for _, bad := range []string{"", "NOT-A-LICENSE", "MIT OR"} {
		err := v.Validate(bad)
		assert.Error(t, err, bad)
		assert.True(t, common.IsValidation(err), bad)
	}
}
