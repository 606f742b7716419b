//go:build release

package assert

const Enabled = false

// That is a no-op in release builds.
func That(bool, string, ...any) {} //nolint:goprintffuncname // it's ok
