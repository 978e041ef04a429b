// Package golden compares test results with golden files under testdata/golden.
//
// Set TESTS_UPDATE_GOLDEN to rewrite the golden files with the current results.
package golden

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// UpdateGoldenFilesEnv is the environment variable used to indicate go test that
// the golden files should be overwritten with the current test results.
const UpdateGoldenFilesEnv = `TESTS_UPDATE_GOLDEN`

var update = os.Getenv(UpdateGoldenFilesEnv) != ""

type options struct {
	path   string
	suffix string
}

// Option is a supported option reference to change the golden files comparison.
type Option func(*options)

// WithPath overrides the default path for golden files used.
func WithPath(path string) Option {
	return func(o *options) {
		if path != "" {
			o.path = path
		}
	}
}

// WithSuffix add a suffix to golden files used.
func WithSuffix(suffix string) Option {
	return func(o *options) {
		o.suffix = suffix
	}
}

func goldenPath(t *testing.T, args ...Option) string {
	t.Helper()

	var opts options
	for _, f := range args {
		f(&opts)
	}
	if !filepath.IsAbs(opts.path) {
		opts.path = filepath.Join(Path(t), opts.path)
	}
	return opts.path + opts.suffix
}

// CheckOrUpdate compares got with the content of the golden file. If the update environment
// variable is set, the golden file is updated with got first.
func CheckOrUpdate(t *testing.T, got string, args ...Option) {
	t.Helper()

	path := goldenPath(t, args...)
	if update {
		t.Logf("updating golden file %s", path)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750), "Cannot create directory for updating golden files")
		require.NoError(t, os.WriteFile(path, []byte(got), 0600), "Cannot write golden file")
	}

	want, err := os.ReadFile(path)
	require.NoError(t, err, "Cannot read golden file %s", path)

	if got == string(want) {
		return
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(want)),
		B:        difflib.SplitLines(got),
		FromFile: "Expected (golden)",
		ToFile:   "Actual",
		Context:  3,
	})
	require.NoError(t, err, "Cannot get unified diff")

	require.Failf(t, "Golden file content mismatch", "Golden file: %s\n%s", path, strings.Join([]string{
		"Expected (golden):",
		strings.Repeat("-", 50),
		strings.TrimSuffix(string(want), "\n"),
		strings.Repeat("-", 50),
		"Actual:",
		strings.Repeat("-", 50),
		strings.TrimSuffix(got, "\n"),
		strings.Repeat("-", 50),
		fmt.Sprintf("Diff:\n%s", diff),
	}, "\n"))
}

// CheckOrUpdateYAML compares got serialized as YAML with the content of the golden file.
func CheckOrUpdateYAML[E any](t *testing.T, got E, args ...Option) {
	t.Helper()

	data, err := yaml.Marshal(got)
	require.NoError(t, err, "Cannot serialize provided object")

	CheckOrUpdate(t, string(data), args...)
}

// Path returns the golden path for the provided test.
func Path(t *testing.T) string {
	t.Helper()

	for _, part := range strings.Split(t.Name(), "/") {
		// A valid golden file contains only alphanumeric characters, underscores, dashes, and dots.
		require.Regexp(t, `^[\w\-.]+$`, part,
			"Invalid golden file name %q. Only alphanumeric characters, underscores, dashes, and dots are allowed", part)
	}

	cwd, err := os.Getwd()
	require.NoError(t, err, "Cannot get current working directory")

	return filepath.Join(cwd, "testdata", "golden", t.Name())
}
