package engine

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/tenvad"
	"github.com/wippyai/tenvad/errors"
)

// maxVersionLen bounds the C string read by Version.
const maxVersionLen = 256

// WazeroMemory wraps wazero memory to implement tenvad.Memory.
// Offsets are guest addresses; the memory may grow between calls, so views
// returned by Read are only valid until the next guest call.
type WazeroMemory struct {
	mem api.Memory
}

func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseProcess, offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	ok := m.mem.Write(offset, data)
	if !ok {
		return errors.OutOfBounds(errors.PhaseProcess, offset, uint32(len(data)))
	}
	return nil
}

func (m *WazeroMemory) ReadU32(offset uint32) (uint32, error) {
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseProcess, offset, 4)
	}
	return val, nil
}

func (m *WazeroMemory) WriteU32(offset uint32, value uint32) error {
	ok := m.mem.WriteUint32Le(offset, value)
	if !ok {
		return errors.OutOfBounds(errors.PhaseProcess, offset, 4)
	}
	return nil
}

func (m *WazeroMemory) ReadF32(offset uint32) (float32, error) {
	val, ok := m.mem.ReadFloat32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseProcess, offset, 4)
	}
	return val, nil
}

// ReadCString reads a NUL-terminated string of at most limit bytes.
func (m *WazeroMemory) ReadCString(offset, limit uint32) (string, error) {
	size := m.Size()
	if offset >= size {
		return "", errors.OutOfBounds(errors.PhaseLoad, offset, 1)
	}
	if offset+limit > size || offset+limit < offset {
		limit = size - offset
	}
	data, _ := m.mem.Read(offset, limit)
	for i, b := range data {
		if b == 0 {
			return string(data[:i]), nil
		}
	}
	return string(data), nil
}

func (m *WazeroMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// Compile-time check that WazeroMemory implements tenvad.Memory
var _ tenvad.Memory = (*WazeroMemory)(nil)
