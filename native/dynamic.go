//go:build darwin || freebsd || linux || windows

package native

import (
	"github.com/ebitengine/purego"

	"github.com/wippyai/tenvad"
	"github.com/wippyai/tenvad/errors"
	"github.com/wippyai/tenvad/resolver"
)

// Open binds the four entry points of lib. The returned core owns lib and
// closes it on Close.
func Open(lib resolver.Library) (*Core, error) {
	symbols := []string{
		tenvad.SymbolCreate,
		tenvad.SymbolProcess,
		tenvad.SymbolDestroy,
		tenvad.SymbolGetVersion,
	}
	addrs := make([]uintptr, len(symbols))
	for i, sym := range symbols {
		addr, err := lib.Lookup(sym)
		if err != nil {
			return nil, errors.Load("bind "+lib.Path(), err)
		}
		if addr == 0 {
			return nil, errors.Load("bind "+lib.Path()+": null address for "+sym, nil)
		}
		addrs[i] = addr
	}

	var f Funcs
	purego.RegisterFunc(&f.Create, addrs[0])
	purego.RegisterFunc(&f.Process, addrs[1])
	purego.RegisterFunc(&f.Destroy, addrs[2])
	purego.RegisterFunc(&f.Version, addrs[3])

	return New(lib.Path(), f, lib)
}
