// SPDX-License-Identifier: MIT
//
// Package build carries version metadata embedded at compile time via
// -ldflags. Development builds fall back to "dev" placeholders so the binary
// remains runnable without a release pipeline.
package build

type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Populated by the linker:
//
//	-ldflags "-X tempo/pkg/build.name=tempod -X tempo/pkg/build.version=..."
var (
	name    string
	time    string
	commit  string
	version string
)

var info Info

// Initialize resolves the linker-supplied values, substituting development
// defaults for anything left unset. Call once at startup before GetInfo.
func Initialize() {
	info = Info{
		Name:    orDev(name, "tempod"),
		Time:    orDev(time, "unknown"),
		Commit:  orDev(commit, "unknown"),
		Version: orDev(version, "dev"),
	}
}

// GetInfo returns the build metadata resolved by Initialize.
func GetInfo() Info {
	return info
}

func orDev(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
