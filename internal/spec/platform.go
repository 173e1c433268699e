package spec

import (
	"fmt"
	"runtime"
)

// Platform identifies the os-arch subdirectory packages are resolved
// against. Constant for the duration of a run.
type Platform string

// The platforms the anaconda.org index publishes.
const (
	Linux64 Platform = "linux-64"
	Linux32 Platform = "linux-32"
	OSX64   Platform = "osx-64"
	OSXArm  Platform = "osx-arm64"
	Win64   Platform = "win-64"
	Win32   Platform = "win-32"
	Noarch  Platform = "noarch"
)

var knownPlatforms = []Platform{Linux64, Linux32, OSX64, OSXArm, Win64, Win32}

// ParsePlatform validates a platform flag value.
func ParsePlatform(text string) (Platform, error) {
	for _, p := range knownPlatforms {
		if string(p) == text {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q (want one of %v)", text, knownPlatforms)
}

// CurrentPlatform maps the host os/arch onto an index platform. Used as the
// default when no platform flag is given.
func CurrentPlatform() Platform {
	switch runtime.GOOS {
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return OSXArm
		}
		return OSX64
	case "windows":
		if runtime.GOARCH == "386" {
			return Win32
		}
		return Win64
	default:
		if runtime.GOARCH == "386" {
			return Linux32
		}
		return Linux64
	}
}

// Subdirs lists the index subdirectories consulted for this platform.
// noarch builds are installable everywhere.
func (p Platform) Subdirs() []string {
	return []string{string(p), string(Noarch)}
}

func (p Platform) String() string { return string(p) }
