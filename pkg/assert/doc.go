// Package assert provides debug-only invariant checks. Assertions are on by default and are
// compiled out when building with `-tags release`, keeping the unchecked fast paths cheap.
package assert
