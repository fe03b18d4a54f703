// Package vad is the high-level voice activity detector API.
//
//	v, err := vad.New(256, 0.5)
//	if err != nil {
//		return err
//	}
//	defer v.Close()
//
//	for frame := range frames {
//		prob, voice, err := v.Process(frame)
//		...
//	}
//
// A VAD runs on one of three backends: the native library loaded at runtime
// (the default), the library linked at build time, or a WebAssembly build of
// the core. Each backend is loaded once per process and shared by every VAD
// created on it.
package vad
