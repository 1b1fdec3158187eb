// Package platform answers capability questions about the host operating
// system. The update transport uses it to tell "this OS is too old to speak
// modern TLS to the release server" apart from an ordinary network failure.
package platform

import (
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Capabilities reports what the running platform's TLS environment supports.
type Capabilities interface {
	// ModernTLSDefaults is true when the platform's trust store and TLS
	// stack are recent enough to negotiate with servers that require
	// modern protocol versions and certificate chains.
	ModernTLSDefaults() bool
}

// tlsFloors maps GOOS to the earliest "major.minor" OS release whose default
// trust configuration can validate the update server's certificate chain.
var tlsFloors = map[string]osVersion{
	"darwin":  {10, 13},
	"windows": {6, 3},
	"linux":   {2, 6},
}

type osVersion struct {
	major int
	minor int
}

func (v osVersion) atLeast(floor osVersion) bool {
	if v.major != floor.major {
		return v.major > floor.major
	}
	return v.minor >= floor.minor
}

// Query is a Capabilities implementation driven by an injectable OS version
// probe, so the branching can be tested without the real platform.
type Query struct {
	GOOS string
	// OSVersion returns a release string starting with "major.minor",
	// e.g. "10.12.6" or "6.1.7601".
	OSVersion func() (string, error)
}

// Detect returns the Capabilities of the machine we are running on.
func Detect() Capabilities {
	return Query{GOOS: runtime.GOOS, OSVersion: probeOSVersion}
}

func (q Query) ModernTLSDefaults() bool {
	floor, ok := tlsFloors[q.GOOS]
	if !ok {
		return true
	}
	release, err := q.OSVersion()
	if err != nil {
		// An unreadable version must not condemn a healthy platform;
		// failures on modern systems then classify as generic.
		return true
	}
	version, ok := parseVersion(release)
	if !ok {
		return true
	}
	return version.atLeast(floor)
}

func parseVersion(release string) (osVersion, bool) {
	fields := strings.FieldsFunc(release, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if len(fields) == 0 {
		return osVersion{}, false
	}
	major, err := strconv.Atoi(fields[0])
	if err != nil {
		return osVersion{}, false
	}
	version := osVersion{major: major}
	if len(fields) > 1 {
		if minor, err := strconv.Atoi(fields[1]); err == nil {
			version.minor = minor
		}
	}
	return version, true
}

func probeOSVersion() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		out, err := exec.Command("sw_vers", "-productVersion").Output()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(out)), nil
	case "windows":
		out, err := exec.Command("cmd", "/c", "ver").Output()
		if err != nil {
			return "", err
		}
		// "Microsoft Windows [Version 10.0.19045]"
		s := strings.TrimSpace(string(out))
		if i := strings.LastIndexByte(s, ' '); i >= 0 {
			s = strings.Trim(s[i+1:], "[]")
		}
		return s, nil
	default:
		out, err := os.ReadFile("/proc/sys/kernel/osrelease")
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(out)), nil
	}
}
