package bytecode

// Node is one element of a method's instruction list: either an opcode
// instruction or a zero-width marker (Label, LineNumber, Frame).
// Nodes are compared by identity.
type Node interface {
	// Opcode returns the instruction's opcode, or -1 for markers.
	Opcode() int
	Prev() Node
	Next() Node
	// Index is the node's position in its list.
	Index() int

	base() *node
}

type node struct {
	prev, next Node
	index      int
}

func (n *node) Prev() Node  { return n.prev }
func (n *node) Next() Node  { return n.next }
func (n *node) Index() int  { return n.index }
func (n *node) base() *node { return n }

// Label marks a jump target, an exception handler entry or the bounds of
// a line number or local variable range.
type Label struct {
	node
	Name string
}

func (*Label) Opcode() int { return -1 }

// LineNumber associates the instructions following Start with a source line.
type LineNumber struct {
	node
	Line  int
	Start *Label
}

func (*LineNumber) Opcode() int { return -1 }

// Frame is a stack map frame. Its contents are not modeled.
type Frame struct {
	node
}

func (*Frame) Opcode() int { return -1 }

// Insn is an instruction without operands.
type Insn struct {
	node
	Op int
}

func (n *Insn) Opcode() int { return n.Op }

// IntInsn is BIPUSH, SIPUSH or NEWARRAY.
type IntInsn struct {
	node
	Op      int
	Operand int
}

func (n *IntInsn) Opcode() int { return n.Op }

// VarInsn loads or stores a local variable slot (also RET).
type VarInsn struct {
	node
	Op  int
	Var int
}

func (n *VarInsn) Opcode() int { return n.Op }

// TypeInsn is NEW, ANEWARRAY, CHECKCAST or INSTANCEOF. Desc holds an
// internal name or an array descriptor.
type TypeInsn struct {
	node
	Op   int
	Desc string
}

func (n *TypeInsn) Opcode() int { return n.Op }

// FieldInsn reads or writes a field.
type FieldInsn struct {
	node
	Op    int
	Owner string
	Name  string
	Desc  string
}

func (n *FieldInsn) Opcode() int { return n.Op }

// MethodInsn invokes a method. Itf is set when the owner is an interface.
type MethodInsn struct {
	node
	Op    int
	Owner string
	Name  string
	Desc  string
	Itf   bool
}

func (n *MethodInsn) Opcode() int { return n.Op }

// InvokeDynamicInsn is an INVOKEDYNAMIC call site.
type InvokeDynamicInsn struct {
	node
	Name string
	Desc string
}

func (*InvokeDynamicInsn) Opcode() int { return OpInvokedynamic }

// JumpInsn is a conditional or unconditional branch, or JSR.
type JumpInsn struct {
	node
	Op    int
	Label *Label
}

func (n *JumpInsn) Opcode() int { return n.Op }

// LdcInsn loads a constant. Cst is an int32, int64, float32, float64,
// string, or a Type for class and method type constants.
type LdcInsn struct {
	node
	Cst any
}

func (*LdcInsn) Opcode() int { return OpLdc }

// Type is a class literal or method type constant loaded by LDC.
type Type struct {
	Desc string
}

// IincInsn increments a local variable.
type IincInsn struct {
	node
	Var  int
	Incr int
}

func (*IincInsn) Opcode() int { return OpIinc }

// TableSwitchInsn is a TABLESWITCH over the keys Min..Max.
type TableSwitchInsn struct {
	node
	Min, Max int
	Dflt     *Label
	Labels   []*Label
}

func (*TableSwitchInsn) Opcode() int { return OpTableswitch }

// LookupSwitchInsn is a LOOKUPSWITCH.
type LookupSwitchInsn struct {
	node
	Dflt   *Label
	Keys   []int
	Labels []*Label
}

func (*LookupSwitchInsn) Opcode() int { return OpLookupswitch }

// MultiANewArrayInsn is a MULTIANEWARRAY.
type MultiANewArrayInsn struct {
	node
	Desc string
	Dims int
}

func (*MultiANewArrayInsn) Opcode() int { return OpMultianewarray }

// IsMarker reports whether n is a label, line number or frame.
func IsMarker(n Node) bool {
	return n != nil && n.Opcode() < 0
}
