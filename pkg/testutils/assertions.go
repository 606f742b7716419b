package testutils

import (
	"testing"

	"github.com/argus-labs/entitycore/pkg/assert"
)

// RequireAssertions skips tests that expect a debug assertion to fire when the build has them
// compiled out.
func RequireAssertions(t *testing.T) {
	t.Helper()
	if !assert.Enabled {
		t.Skip("assertions are compiled out in release builds")
	}
}
