// Package querykit provides the version information for querykit.
package querykit

// Version is the current version of querykit.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
