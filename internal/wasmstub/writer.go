package wasmstub

import (
	"bytes"
	"encoding/binary"
	"math"
)

// writer provides buffered writing utilities for WASM binary encoding.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) bytes() []byte {
	return w.buf.Bytes()
}

func (w *writer) byte(b ...byte) {
	w.buf.Write(b)
}

// u32 writes an unsigned LEB128 encoded uint32.
func (w *writer) u32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

// s32 writes a signed LEB128 encoded int32.
func (w *writer) s32(v int32) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && (b&0x40) == 0) || (v == -1 && (b&0x40) != 0) {
			more = false
		} else {
			b |= 0x80
		}
		w.buf.WriteByte(b)
	}
}

// name writes a length-prefixed UTF-8 name.
func (w *writer) name(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) u32le(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// section writes a section id followed by its size-prefixed payload.
func (w *writer) section(id byte, payload *writer) {
	w.buf.WriteByte(id)
	w.u32(uint32(payload.buf.Len()))
	w.buf.Write(payload.bytes())
}

// Instruction helpers. Only the handful of opcodes the stub needs.

func (w *writer) localGet(i uint32)  { w.byte(0x20); w.u32(i) }
func (w *writer) localSet(i uint32)  { w.byte(0x21); w.u32(i) }
func (w *writer) localTee(i uint32)  { w.byte(0x22); w.u32(i) }
func (w *writer) globalGet(i uint32) { w.byte(0x23); w.u32(i) }
func (w *writer) globalSet(i uint32) { w.byte(0x24); w.u32(i) }
func (w *writer) i32Const(v int32)   { w.byte(0x41); w.s32(v) }

func (w *writer) f32Const(v float32) {
	w.byte(0x43)
	w.u32le(math.Float32bits(v))
}

// memarg: alignment exponent, then offset 0.
func (w *writer) i32Load()    { w.byte(0x28, 0x02, 0x00) }
func (w *writer) i32Load16S() { w.byte(0x2e, 0x01, 0x00) }
func (w *writer) i32Store()   { w.byte(0x36, 0x02, 0x00) }
func (w *writer) f32Store()   { w.byte(0x38, 0x02, 0x00) }

func (w *writer) memorySize() { w.byte(0x3f, 0x00) }
func (w *writer) memoryGrow() { w.byte(0x40, 0x00) }

func (w *writer) block()        { w.byte(0x02, 0x40) }
func (w *writer) ifEmpty()      { w.byte(0x04, 0x40) }
func (w *writer) brIf(d uint32) { w.byte(0x0d); w.u32(d) }
func (w *writer) ret()          { w.byte(0x0f) }
func (w *writer) end()          { w.byte(0x0b) }

// incGlobal adds delta to a mutable i32 global.
func (w *writer) incGlobal(i uint32, delta int32) {
	w.globalGet(i)
	w.i32Const(delta)
	w.byte(opI32Add)
	w.globalSet(i)
}

// returnIfZero returns code when local i is zero.
func (w *writer) returnIfZero(i uint32, code int32) {
	w.localGet(i)
	w.byte(opI32Eqz)
	w.ifEmpty()
	w.i32Const(code)
	w.ret()
	w.end()
}

const (
	opI32Eqz         = 0x45
	opI32Eq          = 0x46
	opI32GtS         = 0x4a
	opI32LeU         = 0x4d
	opI32Add         = 0x6a
	opI32Sub         = 0x6b
	opI32And         = 0x71
	opI32Shl         = 0x74
	opI32ShrU        = 0x76
	opF32Mul         = 0x94
	opF32ConvertI32S = 0xb2
)
