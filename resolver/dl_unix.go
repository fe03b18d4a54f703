//go:build darwin || freebsd || linux

package resolver

import (
	"github.com/ebitengine/purego"

	"github.com/wippyai/tenvad/errors"
)

type dlLibrary struct {
	path   string
	handle uintptr
}

func openSystem(path string) (Library, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, err
	}
	return &dlLibrary{path: path, handle: h}, nil
}

func (l *dlLibrary) Lookup(symbol string) (uintptr, error) {
	addr, err := purego.Dlsym(l.handle, symbol)
	if err != nil {
		return 0, errors.Load("lookup "+symbol, err)
	}
	return addr, nil
}

func (l *dlLibrary) Path() string { return l.path }

func (l *dlLibrary) Close() error {
	return purego.Dlclose(l.handle)
}
