package resolver

import (
	"runtime"
)

// Platform identifies an operating system and CPU architecture using Go's
// GOOS and GOARCH names.
type Platform struct {
	OS   string
	Arch string
}

// Current returns the platform of the running process.
func Current() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Descriptor lists where the native library lives for one platform.
type Descriptor struct {
	Platform Platform

	// Candidates are slash-separated paths relative to each search root,
	// probed in order.
	Candidates []string

	// SystemName is handed to the system loader when no candidate exists.
	// Empty means no system fallback.
	SystemName string
}

// AnyArch matches every architecture of an OS in a Descriptor.
const AnyArch = "*"

// Table is the (platform, architecture) to candidate path mapping.
// Exact architecture entries win over AnyArch entries.
var Table = []Descriptor{
	{Platform{"linux", "amd64"}, []string{"lib/Linux/x64/libten_vad.so"}, "libten_vad.so"},
	{Platform{"linux", AnyArch}, nil, "libten_vad.so"},
	{Platform{"windows", "amd64"}, []string{"lib/Windows/x64/ten_vad.dll"}, "ten_vad.dll"},
	{Platform{"windows", "386"}, []string{"lib/Windows/x86/ten_vad.dll"}, "ten_vad.dll"},
	{Platform{"windows", AnyArch}, nil, "ten_vad.dll"},
	{Platform{"darwin", AnyArch}, []string{"lib/macOS/ten_vad.framework/ten_vad"}, "libten_vad.dylib"},
	{Platform{"android", "arm64"}, []string{"lib/Android/arm64-v8a/libten_vad.so"}, "libten_vad.so"},
	{Platform{"android", "arm"}, []string{"lib/Android/armeabi-v7a/libten_vad.so"}, "libten_vad.so"},
	{Platform{"android", AnyArch}, nil, "libten_vad.so"},
	{Platform{"ios", AnyArch}, []string{"lib/iOS/ten_vad.framework/ten_vad"}, "ten_vad.framework/ten_vad"},
}

// Lookup returns the descriptor for p. An unknown platform yields a
// descriptor with no candidates and no system name.
func Lookup(table []Descriptor, p Platform) Descriptor {
	var wildcard *Descriptor
	for i := range table {
		d := &table[i]
		if d.Platform.OS != p.OS {
			continue
		}
		if d.Platform.Arch == p.Arch {
			return *d
		}
		if d.Platform.Arch == AnyArch && wildcard == nil {
			wildcard = d
		}
	}
	if wildcard != nil {
		d := *wildcard
		d.Platform = p
		return d
	}
	return Descriptor{Platform: p}
}
