package config

import (
	"runtime"
	"strings"

	"golang.org/x/sys/unix"
)

// DetectArchitecture maps a raw machine string (as reported by uname -m) onto
// the Debian architecture name. guessed is true when no mapping is known and
// the raw name is returned unchanged.
func DetectArchitecture(machine string) (name string, guessed bool) {
	m := strings.ToLower(strings.TrimSpace(machine))
	switch m {
	case "x86_64", "amd64":
		return "amd64", false
	case "i386", "i486", "i586", "i686", "x86", "386":
		return "i386", false
	case "aarch64", "arm64":
		return "arm64", false
	case "armv7l", "armhf":
		return "armhf", false
	case "ppc64le", "ppc64el":
		return "ppc64el", false
	case "riscv64", "s390x":
		return m, false
	}
	return machine, true
}

// hostMachine reports the kernel's machine name, falling back to the Go
// architecture when uname is unavailable.
func hostMachine() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err == nil {
		if machine := unix.ByteSliceToString(u.Machine[:]); machine != "" {
			return machine
		}
	}
	return runtime.GOARCH
}
