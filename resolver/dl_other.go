//go:build !(darwin || freebsd || linux || windows)

package resolver

import (
	"runtime"

	"github.com/wippyai/tenvad/errors"
)

func openSystem(path string) (Library, error) {
	return nil, errors.Load("dynamic loading is not supported on "+runtime.GOOS, nil)
}
