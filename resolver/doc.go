// Package resolver finds and loads the native VAD library.
//
// A Resolver probes a fixed table of relative paths under a list of search
// roots, then falls back to the platform's system loader by short name. The
// first outcome is cached: a process either has the library or has a
// LibraryNotFound error listing every location that was tried.
package resolver
