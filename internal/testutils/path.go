package testutils

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/otiai10/copy"
	"github.com/stretchr/testify/require"
)

// ProjectRoot returns the absolute path to the project root.
func ProjectRoot() string {
	// p is the path to the current file, in this case -> {PROJECT_ROOT}/internal/testutils/path.go
	_, p, _, _ := runtime.Caller(0)

	// Ignores the last 3 elements -> /internal/testutils/path.go
	l := strings.Split(p, "/")
	l = l[:len(l)-3]

	// strings.Split removes the first "/" that indicated an AbsPath, so we append it back in the final string.
	return "/" + filepath.Join(l...)
}

// TestFamilyPath returns the path of the dir for storing fixtures and other files related to the test.
func TestFamilyPath(t *testing.T) string {
	t.Helper()

	// Ensures that only the name of the top level test is used
	topLevelTest, _, _ := strings.Cut(t.Name(), "/")

	return filepath.Join("testdata", topLevelTest)
}

// CopyFixtures copies the fixtures directory src into a new temporary
// directory and returns the path of the copy, which tests can freely modify.
func CopyFixtures(t *testing.T, src string) string {
	t.Helper()

	dest := t.TempDir()
	err := copy.Copy(src, dest, copy.Options{
		// Checked out files have no meaningful permissions: tests set the ones they need.
		PermissionControl: copy.AddPermission(0o600),
	})
	require.NoError(t, err, "Setup: could not copy fixtures from %s", src)

	return dest
}
