package native

import (
	"github.com/wippyai/tenvad/resolver"
)

// Load resolves the library with r and binds it. A nil r uses
// resolver.Default.
func Load(r *resolver.Resolver) (*Core, error) {
	if r == nil {
		r = resolver.Default()
	}
	lib, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	return Open(lib)
}
