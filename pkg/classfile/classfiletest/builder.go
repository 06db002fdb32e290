// Package classfiletest assembles small class files for tests.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Builder accumulates a constant pool and class members and renders them
// as class file bytes. Constants are interned.
type Builder struct {
	pool    bytes.Buffer
	count   uint16
	interns map[string]uint16

	access     uint16
	this       uint16
	super      uint16
	interfaces []uint16
	fields     [][]byte
	methods    [][]byte
	attrs      [][]byte
}

// New starts a class named name extending super ("" for none).
func New(name, super string) *Builder {
	b := &Builder{count: 1, interns: make(map[string]uint16), access: 0x0021}
	b.this = b.Class(name)
	if super != "" {
		b.super = b.Class(super)
	}
	return b
}

func (b *Builder) intern(key string, write func(w *bytes.Buffer), slots uint16) uint16 {
	if idx, ok := b.interns[key]; ok {
		return idx
	}
	idx := b.count
	write(&b.pool)
	b.count += slots
	b.interns[key] = idx
	return idx
}

// Utf8 returns the index of a CONSTANT_Utf8.
func (b *Builder) Utf8(s string) uint16 {
	return b.intern("u:"+s, func(w *bytes.Buffer) {
		w.WriteByte(1)
		put16(w, uint16(len(s)))
		w.WriteString(s)
	}, 1)
}

// Class returns the index of a CONSTANT_Class.
func (b *Builder) Class(name string) uint16 {
	n := b.Utf8(name)
	return b.intern("c:"+name, func(w *bytes.Buffer) { w.WriteByte(7); put16(w, n) }, 1)
}

// String returns the index of a CONSTANT_String.
func (b *Builder) String(s string) uint16 {
	n := b.Utf8(s)
	return b.intern("s:"+s, func(w *bytes.Buffer) { w.WriteByte(8); put16(w, n) }, 1)
}

// Integer returns the index of a CONSTANT_Integer.
func (b *Builder) Integer(v int32) uint16 {
	return b.intern(fmt.Sprintf("i:%d", v), func(w *bytes.Buffer) {
		w.WriteByte(3)
		binary.Write(w, binary.BigEndian, v)
	}, 1)
}

// Long returns the index of a CONSTANT_Long.
func (b *Builder) Long(v int64) uint16 {
	return b.intern(fmt.Sprintf("j:%d", v), func(w *bytes.Buffer) {
		w.WriteByte(5)
		binary.Write(w, binary.BigEndian, v)
	}, 2)
}

// Double returns the index of a CONSTANT_Double.
func (b *Builder) Double(v float64) uint16 {
	return b.intern(fmt.Sprintf("d:%v", v), func(w *bytes.Buffer) {
		w.WriteByte(6)
		binary.Write(w, binary.BigEndian, math.Float64bits(v))
	}, 2)
}

func (b *Builder) nameAndType(name, desc string) uint16 {
	n, d := b.Utf8(name), b.Utf8(desc)
	return b.intern("nt:"+name+":"+desc, func(w *bytes.Buffer) { w.WriteByte(12); put16(w, n); put16(w, d) }, 1)
}

func (b *Builder) member(tag byte, owner, name, desc string) uint16 {
	c, nt := b.Class(owner), b.nameAndType(name, desc)
	return b.intern(fmt.Sprintf("m%d:%s.%s:%s", tag, owner, name, desc), func(w *bytes.Buffer) {
		w.WriteByte(tag)
		put16(w, c)
		put16(w, nt)
	}, 1)
}

// Fieldref returns the index of a CONSTANT_Fieldref.
func (b *Builder) Fieldref(owner, name, desc string) uint16 { return b.member(9, owner, name, desc) }

// Methodref returns the index of a CONSTANT_Methodref.
func (b *Builder) Methodref(owner, name, desc string) uint16 { return b.member(10, owner, name, desc) }

// InterfaceMethodref returns the index of a CONSTANT_InterfaceMethodref.
func (b *Builder) InterfaceMethodref(owner, name, desc string) uint16 {
	return b.member(11, owner, name, desc)
}

// Interface adds an implemented interface.
func (b *Builder) Interface(name string) *Builder {
	b.interfaces = append(b.interfaces, b.Class(name))
	return b
}

// Attribute adds a raw class attribute.
func (b *Builder) Attribute(name string, data []byte) *Builder {
	b.attrs = append(b.attrs, b.attribute(name, data))
	return b
}

// SourceFile adds a SourceFile attribute.
func (b *Builder) SourceFile(name string) *Builder {
	var w bytes.Buffer
	put16(&w, b.Utf8(name))
	return b.Attribute("SourceFile", w.Bytes())
}

// Annotations adds a RuntimeVisibleAnnotations attribute with one
// annotation per descriptor. The first annotation carries a string
// element to exercise element skipping.
func (b *Builder) Annotations(descs ...string) *Builder {
	var w bytes.Buffer
	put16(&w, uint16(len(descs)))
	for i, desc := range descs {
		put16(&w, b.Utf8(desc))
		if i == 0 {
			put16(&w, 1)
			put16(&w, b.Utf8("bytes"))
			w.WriteByte('s')
			put16(&w, b.Utf8("\x06\x05\x02\x13"))
			continue
		}
		put16(&w, 0)
	}
	return b.Attribute("RuntimeVisibleAnnotations", w.Bytes())
}

// Field adds a field.
func (b *Builder) Field(access uint16, name, desc string) *Builder {
	var w bytes.Buffer
	put16(&w, access)
	put16(&w, b.Utf8(name))
	put16(&w, b.Utf8(desc))
	put16(&w, 0)
	b.fields = append(b.fields, w.Bytes())
	return b
}

// Handler is an exception table entry.
type Handler struct {
	Start, End, Handler uint16
	CatchType           string
}

// Local is a LocalVariableTable entry.
type Local struct {
	Start, Length uint16
	Name, Desc    string
	Index         uint16
}

// Code is a method body. Lines maps start pc to line number.
type Code struct {
	MaxStack, MaxLocals uint16
	Bytes               []byte
	Handlers            []Handler
	Lines               [][2]uint16
	Locals              []Local
}

// Method adds a method. A nil code adds an abstract method.
func (b *Builder) Method(access uint16, name, desc string, code *Code) *Builder {
	var w bytes.Buffer
	put16(&w, access)
	put16(&w, b.Utf8(name))
	put16(&w, b.Utf8(desc))
	if code == nil {
		put16(&w, 0)
		b.methods = append(b.methods, w.Bytes())
		return b
	}
	put16(&w, 1)
	w.Write(b.attribute("Code", b.code(code)))
	b.methods = append(b.methods, w.Bytes())
	return b
}

func (b *Builder) code(c *Code) []byte {
	var w bytes.Buffer
	put16(&w, max(c.MaxStack, 4))
	put16(&w, max(c.MaxLocals, 4))
	binary.Write(&w, binary.BigEndian, uint32(len(c.Bytes)))
	w.Write(c.Bytes)
	put16(&w, uint16(len(c.Handlers)))
	for _, h := range c.Handlers {
		put16(&w, h.Start)
		put16(&w, h.End)
		put16(&w, h.Handler)
		if h.CatchType == "" {
			put16(&w, 0)
		} else {
			put16(&w, b.Class(h.CatchType))
		}
	}
	var attrs [][]byte
	if len(c.Lines) > 0 {
		var lw bytes.Buffer
		put16(&lw, uint16(len(c.Lines)))
		for _, l := range c.Lines {
			put16(&lw, l[0])
			put16(&lw, l[1])
		}
		attrs = append(attrs, b.attribute("LineNumberTable", lw.Bytes()))
	}
	if len(c.Locals) > 0 {
		var vw bytes.Buffer
		put16(&vw, uint16(len(c.Locals)))
		for _, l := range c.Locals {
			put16(&vw, l.Start)
			put16(&vw, l.Length)
			put16(&vw, b.Utf8(l.Name))
			put16(&vw, b.Utf8(l.Desc))
			put16(&vw, l.Index)
		}
		attrs = append(attrs, b.attribute("LocalVariableTable", vw.Bytes()))
	}
	put16(&w, uint16(len(attrs)))
	for _, a := range attrs {
		w.Write(a)
	}
	return w.Bytes()
}

func (b *Builder) attribute(name string, data []byte) []byte {
	var w bytes.Buffer
	put16(&w, b.Utf8(name))
	binary.Write(&w, binary.BigEndian, uint32(len(data)))
	w.Write(data)
	return w.Bytes()
}

// Bytes renders the class file.
func (b *Builder) Bytes() []byte {
	var w bytes.Buffer
	binary.Write(&w, binary.BigEndian, uint32(0xCAFEBABE))
	put16(&w, 0)
	put16(&w, 52)
	// Members may have interned more constants, so the pool goes last
	// into its own buffer before being spliced in.
	var body bytes.Buffer
	put16(&body, b.access)
	put16(&body, b.this)
	put16(&body, b.super)
	put16(&body, uint16(len(b.interfaces)))
	for _, i := range b.interfaces {
		put16(&body, i)
	}
	put16(&body, uint16(len(b.fields)))
	for _, f := range b.fields {
		body.Write(f)
	}
	put16(&body, uint16(len(b.methods)))
	for _, m := range b.methods {
		body.Write(m)
	}
	put16(&body, uint16(len(b.attrs)))
	for _, a := range b.attrs {
		body.Write(a)
	}
	put16(&w, b.count)
	w.Write(b.pool.Bytes())
	w.Write(body.Bytes())
	return w.Bytes()
}

// Ins encodes one instruction: the opcode followed by the given u8
// operands, then the u16 operands.
func Ins(op int, u8 []byte, u16 ...uint16) []byte {
	out := []byte{byte(op)}
	out = append(out, u8...)
	for _, v := range u16 {
		out = append(out, byte(v>>8), byte(v))
	}
	return out
}

// Join concatenates instruction encodings.
func Join(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func put16(w *bytes.Buffer, v uint16) {
	w.WriteByte(byte(v >> 8))
	w.WriteByte(byte(v))
}
