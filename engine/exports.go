package engine

import "github.com/wippyai/tenvad"

// Exports names the guest exports the host binds to.
// Empty fields take the emscripten defaults.
type Exports struct {
	Memory     string
	Malloc     string
	Free       string
	Create     string
	Process    string
	Destroy    string
	GetVersion string
	Initialize string
}

// DefaultExports returns the names emitted by an emscripten build:
// C symbols with a leading underscore.
func DefaultExports() Exports {
	return PrefixedExports("_")
}

// PrefixedExports returns export names with prefix prepended to each C symbol.
func PrefixedExports(prefix string) Exports {
	return Exports{
		Memory:     "memory",
		Malloc:     prefix + "malloc",
		Free:       prefix + "free",
		Create:     prefix + tenvad.SymbolCreate,
		Process:    prefix + tenvad.SymbolProcess,
		Destroy:    prefix + tenvad.SymbolDestroy,
		GetVersion: prefix + tenvad.SymbolGetVersion,
		Initialize: prefix + "initialize",
	}
}

func (x Exports) withDefaults() Exports {
	d := DefaultExports()
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return Exports{
		Memory:     pick(x.Memory, d.Memory),
		Malloc:     pick(x.Malloc, d.Malloc),
		Free:       pick(x.Free, d.Free),
		Create:     pick(x.Create, d.Create),
		Process:    pick(x.Process, d.Process),
		Destroy:    pick(x.Destroy, d.Destroy),
		GetVersion: pick(x.GetVersion, d.GetVersion),
		Initialize: pick(x.Initialize, d.Initialize),
	}
}
