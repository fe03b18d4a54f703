//go:build !(cgo && tenvad_static)

package native

import (
	"github.com/wippyai/tenvad/errors"
)

// StaticAvailable reports whether the library was linked at build time.
const StaticAvailable = false

// Static reports that the library was not linked at build time. Build with
// cgo and the tenvad_static tag to enable it.
func Static() (*Core, error) {
	return nil, errors.Load("static core not linked (build with -tags tenvad_static)", nil)
}
