// Package testsdetection restricts the Z_ForTests helpers of the SQL backend
// and the fake backend to test binaries, so that the NSS plugin and the CLI
// can never reach them.
package testsdetection

import (
	"testing"
)

// MustBeTesting panics if we are not running under tests.
func MustBeTesting() {
	if !testing.Testing() {
		panic("This can only be called in tests")
	}
}
