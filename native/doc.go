// Package native implements tenvad.Core over the C entry points of the VAD
// library.
//
// Open binds a library located by the resolver package at runtime through
// purego, so no C toolchain is needed. Static links the library at build
// time through cgo and is only available with the tenvad_static build tag.
// Both produce the same Core: raw native pointers stay inside a handle table
// and callers only ever see opaque tokens.
package native
