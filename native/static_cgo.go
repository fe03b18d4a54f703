//go:build cgo && tenvad_static

package native

/*
#cgo linux LDFLAGS: -L${SRCDIR}/../lib/Linux/x64 -lten_vad -Wl,-rpath,${SRCDIR}/../lib/Linux/x64
#cgo darwin LDFLAGS: -F${SRCDIR}/../lib/macOS -framework ten_vad -Wl,-rpath,${SRCDIR}/../lib/macOS
#cgo windows LDFLAGS: -L${SRCDIR}/../lib/Windows/x64 -lten_vad

#include <stddef.h>
#include <stdint.h>

typedef void *ten_vad_handle_t;

int ten_vad_create(ten_vad_handle_t *handle, size_t hop_size, float threshold);
int ten_vad_process(ten_vad_handle_t handle, const int16_t *audio_data, size_t audio_data_length,
                    float *out_probability, int *out_flag);
int ten_vad_destroy(ten_vad_handle_t *handle);
const char *ten_vad_get_version(void);
*/
import "C"

import (
	"unsafe"
)

// StaticAvailable reports whether the library was linked at build time.
const StaticAvailable = true

// Static returns a core over the statically linked library.
func Static() (*Core, error) {
	return New("static", Funcs{
		Create: func(handle *uintptr, hopSize uintptr, threshold float32) int32 {
			var h C.ten_vad_handle_t
			rc := C.ten_vad_create(&h, C.size_t(hopSize), C.float(threshold))
			*handle = uintptr(h)
			return int32(rc)
		},
		Process: func(handle uintptr, audio *int16, length uintptr, probability *float32, flag *int32) int32 {
			rc := C.ten_vad_process(
				C.ten_vad_handle_t(unsafe.Pointer(handle)),
				(*C.int16_t)(unsafe.Pointer(audio)),
				C.size_t(length),
				(*C.float)(unsafe.Pointer(probability)),
				(*C.int)(unsafe.Pointer(flag)),
			)
			return int32(rc)
		},
		Destroy: func(handle *uintptr) int32 {
			h := C.ten_vad_handle_t(unsafe.Pointer(*handle))
			rc := C.ten_vad_destroy(&h)
			*handle = uintptr(h)
			return int32(rc)
		},
		Version: func() string {
			return C.GoString(C.ten_vad_get_version())
		},
	}, nil)
}
