// Package version exposes the build-stamped version string used for
// --version output and the startup log line, reusing
// github.com/perforce/p4prometheus/version the way main.go and
// cmd/gitgraph/gitgraph.go already do.
package version

import "github.com/perforce/p4prometheus/version"

// Print returns the formatted version string for program.
func Print(program string) string {
	return version.Print(program)
}
