package classfile

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// ReadClass parses a .class file and decodes it into the bytecode model.
func ReadClass(r io.Reader) (*bytecode.Class, error) {
	cf, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return Decode(cf)
}

// Decode converts a parsed class file into a bytecode.Class with decoded
// instruction lists.
func Decode(cf *ClassFile) (*bytecode.Class, error) {
	name, err := cf.ClassName()
	if err != nil {
		return nil, fmt.Errorf("resolving this_class: %w", err)
	}
	c := &bytecode.Class{
		Access:      int(cf.AccessFlags),
		Name:        name,
		SuperName:   cf.SuperClassName(),
		Annotations: cf.Annotations,
		Attributes:  cf.AttributeNames(),
		SourceFile:  cf.SourceFile,
	}
	for i, idx := range cf.Interfaces {
		iface, err := GetClassName(cf.ConstantPool, idx)
		if err != nil {
			return nil, fmt.Errorf("resolving interface %d: %w", i, err)
		}
		c.Interfaces = append(c.Interfaces, iface)
	}
	for _, f := range cf.Fields {
		c.Fields = append(c.Fields, &bytecode.Field{Access: int(f.AccessFlags), Name: f.Name, Desc: f.Descriptor})
	}
	for i := range cf.Methods {
		m, err := decodeMethod(cf.ConstantPool, &cf.Methods[i])
		if err != nil {
			return nil, fmt.Errorf("decoding %s.%s%s: %w", name, cf.Methods[i].Name, cf.Methods[i].Descriptor, err)
		}
		c.Methods = append(c.Methods, m)
	}
	return c, nil
}

func decodeMethod(pool []ConstantPoolEntry, mi *MethodInfo) (*bytecode.Method, error) {
	m := &bytecode.Method{
		Access:       int(mi.AccessFlags),
		Name:         mi.Name,
		Desc:         mi.Descriptor,
		Instructions: &bytecode.List{},
	}
	if mi.Code == nil {
		return m, nil
	}
	d := &codeDecoder{pool: pool, code: mi.Code, labels: make(map[int]*bytecode.Label)}
	if err := d.decode(m); err != nil {
		return nil, err
	}
	return m, nil
}

// codeDecoder turns Code bytes into an instruction list in two passes:
// decode every instruction by pc (creating labels on demand for branch
// targets), then assemble labels, line numbers and instructions in pc
// order.
type codeDecoder struct {
	pool   []ConstantPoolEntry
	code   *CodeAttribute
	labels map[int]*bytecode.Label
	insns  map[int]bytecode.Node
}

func (d *codeDecoder) labelAt(pc int) (*bytecode.Label, error) {
	if pc < 0 || pc > len(d.code.Code) {
		return nil, fmt.Errorf("branch target %d outside code of length %d", pc, len(d.code.Code))
	}
	l, ok := d.labels[pc]
	if !ok {
		l = &bytecode.Label{}
		d.labels[pc] = l
	}
	return l, nil
}

func (d *codeDecoder) decode(m *bytecode.Method) error {
	d.insns = make(map[int]bytecode.Node)
	r := &byteReader{data: d.code.Code}
	for r.pos < len(r.data) {
		pc := r.pos
		n, err := d.decodeInsn(r, pc)
		if err != nil {
			return fmt.Errorf("pc %d: %w", pc, err)
		}
		if r.err != nil {
			return fmt.Errorf("pc %d: %w", pc, r.err)
		}
		d.insns[pc] = n
	}

	lines := make(map[int][]int)
	for _, ln := range d.code.LineNumbers {
		if _, err := d.labelAt(int(ln.StartPC)); err != nil {
			return fmt.Errorf("line number table: %w", err)
		}
		lines[int(ln.StartPC)] = append(lines[int(ln.StartPC)], int(ln.LineNumber))
	}
	for _, h := range d.code.ExceptionHandlers {
		start, err := d.labelAt(int(h.StartPC))
		if err != nil {
			return fmt.Errorf("exception table: %w", err)
		}
		end, err := d.labelAt(int(h.EndPC))
		if err != nil {
			return fmt.Errorf("exception table: %w", err)
		}
		handler, err := d.labelAt(int(h.HandlerPC))
		if err != nil {
			return fmt.Errorf("exception table: %w", err)
		}
		tcb := &bytecode.TryCatchBlock{Start: start, End: end, Handler: handler}
		if h.CatchType != 0 {
			if tcb.Type, err = GetClassName(d.pool, h.CatchType); err != nil {
				return fmt.Errorf("exception table catch type: %w", err)
			}
		}
		m.TryCatchBlocks = append(m.TryCatchBlocks, tcb)
	}
	for _, lv := range d.code.LocalVariables {
		start, err := d.labelAt(int(lv.StartPC))
		if err != nil {
			return fmt.Errorf("local variable %s: %w", lv.Name, err)
		}
		end, err := d.labelAt(int(lv.StartPC) + int(lv.Length))
		if err != nil {
			return fmt.Errorf("local variable %s: %w", lv.Name, err)
		}
		m.LocalVariables = append(m.LocalVariables, &bytecode.LocalVariable{
			Index: int(lv.Index),
			Name:  lv.Name,
			Desc:  lv.Descriptor,
			Start: start,
			End:   end,
		})
	}

	pcs := make([]int, 0, len(d.insns)+1)
	for pc := range d.insns {
		pcs = append(pcs, pc)
	}
	sort.Ints(pcs)
	pcs = append(pcs, len(d.code.Code))

	list := m.Instructions
	next := 0
	for _, pc := range pcs {
		if l, ok := d.labels[pc]; ok {
			l.Name = "L" + strconv.Itoa(next)
			next++
			list.Add(l)
			for _, line := range lines[pc] {
				list.Add(&bytecode.LineNumber{Line: line, Start: l})
			}
		}
		if n, ok := d.insns[pc]; ok {
			list.Add(n)
		}
	}
	if len(d.labels) != next {
		return fmt.Errorf("label inside an instruction")
	}
	return nil
}

func (d *codeDecoder) jump(op, pc, offset int) (bytecode.Node, error) {
	l, err := d.labelAt(pc + offset)
	if err != nil {
		return nil, err
	}
	return &bytecode.JumpInsn{Op: op, Label: l}, nil
}

func (d *codeDecoder) decodeInsn(r *byteReader, pc int) (bytecode.Node, error) {
	op := int(r.ReadU8())

	// Short forms and wide variants first.
	switch {
	case op >= bytecode.OpIload0 && op <= bytecode.OpAload3:
		k := op - bytecode.OpIload0
		return &bytecode.VarInsn{Op: bytecode.OpIload + k/4, Var: k % 4}, nil
	case op >= bytecode.OpIstore0 && op <= bytecode.OpAstore3:
		k := op - bytecode.OpIstore0
		return &bytecode.VarInsn{Op: bytecode.OpIstore + k/4, Var: k % 4}, nil
	case op == bytecode.OpWide:
		inner := int(r.ReadU8())
		if inner == bytecode.OpIinc {
			slot := int(r.ReadU16())
			return &bytecode.IincInsn{Var: slot, Incr: int(r.ReadI16())}, nil
		}
		if bytecode.KindOf(inner) != bytecode.KindVar {
			return nil, fmt.Errorf("wide applied to %s", bytecode.Name(inner))
		}
		return &bytecode.VarInsn{Op: inner, Var: int(r.ReadU16())}, nil
	case op == bytecode.OpLdcW || op == bytecode.OpLdc2W:
		return d.ldc(r.ReadU16())
	case op == bytecode.OpGotoW:
		return d.jump(bytecode.OpGoto, pc, int(r.ReadI32()))
	case op == bytecode.OpJsrW:
		return d.jump(bytecode.OpJsr, pc, int(r.ReadI32()))
	}

	switch bytecode.KindOf(op) {
	case bytecode.KindInsn:
		return &bytecode.Insn{Op: op}, nil
	case bytecode.KindInt:
		switch op {
		case bytecode.OpBipush:
			return &bytecode.IntInsn{Op: op, Operand: int(r.ReadI8())}, nil
		case bytecode.OpSipush:
			return &bytecode.IntInsn{Op: op, Operand: int(r.ReadI16())}, nil
		}
		return &bytecode.IntInsn{Op: op, Operand: int(r.ReadU8())}, nil
	case bytecode.KindVar:
		return &bytecode.VarInsn{Op: op, Var: int(r.ReadU8())}, nil
	case bytecode.KindIinc:
		slot := int(r.ReadU8())
		return &bytecode.IincInsn{Var: slot, Incr: int(r.ReadI8())}, nil
	case bytecode.KindLdc:
		return d.ldc(uint16(r.ReadU8()))
	case bytecode.KindJump:
		return d.jump(op, pc, int(r.ReadI16()))
	case bytecode.KindTableSwitch:
		return d.tableSwitch(r, pc)
	case bytecode.KindLookupSwitch:
		return d.lookupSwitch(r, pc)
	case bytecode.KindField:
		ref, err := ResolveFieldref(d.pool, r.ReadU16())
		if err != nil {
			return nil, err
		}
		return &bytecode.FieldInsn{Op: op, Owner: ref.ClassName, Name: ref.FieldName, Desc: ref.Descriptor}, nil
	case bytecode.KindMethod:
		ref, err := ResolveAnyMethodref(d.pool, r.ReadU16())
		if err != nil {
			return nil, err
		}
		if op == bytecode.OpInvokeinterface {
			r.ReadU8() // count
			r.ReadU8() // 0
		}
		return &bytecode.MethodInsn{Op: op, Owner: ref.ClassName, Name: ref.MethodName, Desc: ref.Descriptor, Itf: ref.Interface}, nil
	case bytecode.KindInvokeDynamic:
		name, desc, err := ResolveInvokeDynamic(d.pool, r.ReadU16())
		if err != nil {
			return nil, err
		}
		r.ReadU16()
		return &bytecode.InvokeDynamicInsn{Name: name, Desc: desc}, nil
	case bytecode.KindType:
		name, err := GetClassName(d.pool, r.ReadU16())
		if err != nil {
			return nil, err
		}
		return &bytecode.TypeInsn{Op: op, Desc: name}, nil
	case bytecode.KindMultiANewArray:
		name, err := GetClassName(d.pool, r.ReadU16())
		if err != nil {
			return nil, err
		}
		return &bytecode.MultiANewArrayInsn{Desc: name, Dims: int(r.ReadU8())}, nil
	}
	return nil, fmt.Errorf("unknown opcode 0x%02X", op)
}

func (d *codeDecoder) ldc(index uint16) (bytecode.Node, error) {
	cst, err := ResolveLoadable(d.pool, index)
	if err != nil {
		return nil, err
	}
	return &bytecode.LdcInsn{Cst: cst}, nil
}

func (d *codeDecoder) tableSwitch(r *byteReader, pc int) (bytecode.Node, error) {
	r.Align()
	dflt := int(r.ReadI32())
	low := int(r.ReadI32())
	high := int(r.ReadI32())
	if r.err != nil {
		return nil, r.err
	}
	if high < low || high-low >= len(r.data) {
		return nil, fmt.Errorf("tableswitch range %d..%d", low, high)
	}
	n := &bytecode.TableSwitchInsn{Min: low, Max: high}
	var err error
	if n.Dflt, err = d.labelAt(pc + dflt); err != nil {
		return nil, err
	}
	for i := low; i <= high; i++ {
		l, err := d.labelAt(pc + int(r.ReadI32()))
		if err != nil {
			return nil, err
		}
		n.Labels = append(n.Labels, l)
	}
	return n, nil
}

func (d *codeDecoder) lookupSwitch(r *byteReader, pc int) (bytecode.Node, error) {
	r.Align()
	dflt := int(r.ReadI32())
	pairs := int(r.ReadI32())
	if r.err != nil {
		return nil, r.err
	}
	if pairs < 0 || pairs > len(r.data) {
		return nil, fmt.Errorf("lookupswitch with %d pairs", pairs)
	}
	n := &bytecode.LookupSwitchInsn{}
	var err error
	if n.Dflt, err = d.labelAt(pc + dflt); err != nil {
		return nil, err
	}
	for i := 0; i < pairs; i++ {
		key := int(r.ReadI32())
		l, err := d.labelAt(pc + int(r.ReadI32()))
		if err != nil {
			return nil, err
		}
		n.Keys = append(n.Keys, key)
		n.Labels = append(n.Labels, l)
	}
	return n, nil
}
