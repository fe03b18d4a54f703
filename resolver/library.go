package resolver

// Library is a loaded native module.
type Library interface {
	// Lookup returns the address of an exported symbol.
	Lookup(symbol string) (uintptr, error)

	// Path is the path or name the library was opened with.
	Path() string

	Close() error
}

// Opener loads a native module by path or system short name.
type Opener interface {
	Open(path string) (Library, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (Library, error)

func (f OpenerFunc) Open(path string) (Library, error) { return f(path) }

// SystemOpener loads libraries with the platform's dynamic loader.
var SystemOpener Opener = OpenerFunc(openSystem)
