// Package version provides version information for the server binary.
package version

// Version is the server version reported by the initialize response and
// the --version flag. Overridden at release time via -ldflags.
var Version = "0.1.0"
