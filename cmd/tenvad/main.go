// Command tenvad runs the TEN voice activity detector over WAV files.
//
// Usage:
//
//	tenvad [flags] <command> [args]
//
// Commands:
//
//	version   print the engine version
//	resolve   show where the native library is searched for and what loads
//	run       process a mono 16-bit WAV file frame by frame
//	watch     live probability meter for a WAV file
package main

import (
	"fmt"
	"os"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
