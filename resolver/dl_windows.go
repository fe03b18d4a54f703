//go:build windows

package resolver

import (
	"golang.org/x/sys/windows"

	"github.com/wippyai/tenvad/errors"
)

type dllLibrary struct {
	path   string
	handle windows.Handle
}

func openSystem(path string) (Library, error) {
	h, err := windows.LoadLibrary(path)
	if err != nil {
		return nil, err
	}
	return &dllLibrary{path: path, handle: h}, nil
}

func (l *dllLibrary) Lookup(symbol string) (uintptr, error) {
	addr, err := windows.GetProcAddress(l.handle, symbol)
	if err != nil {
		return 0, errors.Load("lookup "+symbol, err)
	}
	return addr, nil
}

func (l *dllLibrary) Path() string { return l.path }

func (l *dllLibrary) Close() error {
	return windows.FreeLibrary(l.handle)
}
