// Package version holds build identification, injected via -ldflags.
package version

var (
	// Version is the release version of the atlas-report toolchain.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
