// Package version reports the jig build version.
package version

import "runtime/debug"

// version is set at build time via -ldflags "-X jig/internal/version.version=...".
var version = "dev" //nolint:gochecknoglobals // ldflags requires package-level var

// String returns the linked version, falling back to the module version
// recorded by `go install` and finally to "dev".
func String() string {
	if version != "dev" {
		return version
	}
	return fromBuildInfo(debug.ReadBuildInfo)
}

func fromBuildInfo(read func() (*debug.BuildInfo, bool)) string {
	info, ok := read()
	if !ok || info == nil {
		return version
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	return version
}
