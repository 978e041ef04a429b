package ctl

import (
	"io"
	"testing"
)

// NewForTests returns an App running args and printing its results to out.
func NewForTests(t *testing.T, out io.Writer, args ...string) *App {
	t.Helper()

	a := New()
	a.rootCmd.SetArgs(args)
	if out == nil {
		out = io.Discard
	}
	a.rootCmd.SetOut(out)
	a.rootCmd.SetErr(io.Discard)
	return a
}
