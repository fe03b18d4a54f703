//go:build !(darwin || freebsd || linux || windows)

package native

import (
	"runtime"

	"github.com/wippyai/tenvad/errors"
	"github.com/wippyai/tenvad/resolver"
)

// Open is unavailable on this platform.
func Open(lib resolver.Library) (*Core, error) {
	return nil, errors.Load("dynamic binding is not supported on "+runtime.GOOS, nil)
}
