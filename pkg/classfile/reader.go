package classfile

import (
	"fmt"
	"io"
)

// byteReader reads big-endian operands from a byte slice. The first
// out-of-range read records io.ErrUnexpectedEOF and every later read
// returns zero, so callers check err once after a sequence of reads.
type byteReader struct {
	data []byte
	pos  int
	err  error
}

func (r *byteReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *byteReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.data) {
		r.fail(fmt.Errorf("offset %d: %w", r.pos, io.ErrUnexpectedEOF))
		return false
	}
	return true
}

// ReadU8 reads a uint8 operand and advances pos.
func (r *byteReader) ReadU8() uint8 {
	if !r.need(1) {
		return 0
	}
	val := r.data[r.pos]
	r.pos++
	return val
}

// ReadI8 reads an int8 operand and advances pos.
func (r *byteReader) ReadI8() int8 {
	return int8(r.ReadU8())
}

// ReadU16 reads a uint16 operand and advances pos by 2.
func (r *byteReader) ReadU16() uint16 {
	if !r.need(2) {
		return 0
	}
	val := uint16(r.data[r.pos])<<8 | uint16(r.data[r.pos+1])
	r.pos += 2
	return val
}

// ReadI16 reads an int16 operand and advances pos by 2.
func (r *byteReader) ReadI16() int16 {
	return int16(r.ReadU16())
}

// ReadI32 reads an int32 operand and advances pos by 4.
func (r *byteReader) ReadI32() int32 {
	if !r.need(4) {
		return 0
	}
	val := int32(r.data[r.pos])<<24 | int32(r.data[r.pos+1])<<16 | int32(r.data[r.pos+2])<<8 | int32(r.data[r.pos+3])
	r.pos += 4
	return val
}

// Align skips the 0-3 padding bytes that follow a switch opcode.
func (r *byteReader) Align() {
	for r.pos%4 != 0 && r.err == nil {
		r.ReadU8()
	}
}
