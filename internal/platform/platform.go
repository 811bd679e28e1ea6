// Package platform describes the host OS and CPU architecture together with
// the alias tokens release publishers embed in asset filenames.
package platform

import (
	"fmt"
	"runtime"
)

// OS is an operating system an asset can be built for.
type OS string

// Arch is a CPU architecture an asset can be built for.
type Arch string

const (
	Linux  OS = "linux"
	Darwin OS = "darwin"

	X86_64  Arch = "x86_64"
	Aarch64 Arch = "aarch64"
)

// Descriptor is the immutable platform value handed to the asset matcher.
// It is constructed once per process but always passed explicitly so tests
// can match against arbitrary platforms.
type Descriptor struct {
	OS   OS
	Arch Arch
}

// osAliases and archAliases list the filename tokens publishers use for each
// platform, most common first. Matching lower-cases asset names, so aliases
// are kept lowercase here.
var osAliases = map[OS][]string{
	Linux:  {"linux"},
	Darwin: {"darwin", "macos", "osx", "apple"},
}

var archAliases = map[Arch][]string{
	X86_64:  {"x86_64", "amd64", "x64"},
	Aarch64: {"aarch64", "arm64"},
}

// Host returns the descriptor for the running process.
func Host() (Descriptor, error) {
	var d Descriptor

	switch runtime.GOOS {
	case "linux":
		d.OS = Linux
	case "darwin":
		d.OS = Darwin
	default:
		return Descriptor{}, fmt.Errorf("unsupported operating system %q", runtime.GOOS)
	}

	switch runtime.GOARCH {
	case "amd64":
		d.Arch = X86_64
	case "arm64":
		d.Arch = Aarch64
	default:
		return Descriptor{}, fmt.Errorf("unsupported architecture %q", runtime.GOARCH)
	}

	return d, nil
}

// OSAliases returns the filename tokens that identify the descriptor's OS.
func (d Descriptor) OSAliases() []string {
	return osAliases[d.OS]
}

// ArchAliases returns the filename tokens that identify the descriptor's
// architecture.
func (d Descriptor) ArchAliases() []string {
	return archAliases[d.Arch]
}

func (d Descriptor) String() string {
	return string(d.OS) + "/" + string(d.Arch)
}
