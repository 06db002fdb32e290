package filter

import (
	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// Matcher is a cursor over an instruction list plus named variable
// bindings. A nil cursor means the match has failed; every primitive is a
// no-op on a failed matcher, so a pattern is written as a straight
// sequence of calls followed by one Failed check.
//
// A Matcher is used by one detector for one method and then discarded.
type Matcher struct {
	cursor bytecode.Node
	vars   map[string]*bytecode.VarInsn
}

// NewMatcher returns a matcher positioned at start. Markers at start are
// not skipped.
func NewMatcher(start bytecode.Node) *Matcher {
	return &Matcher{cursor: start, vars: make(map[string]*bytecode.VarInsn)}
}

// Cursor returns the current node, or nil after a failed step.
func (m *Matcher) Cursor() bytecode.Node { return m.cursor }

// Failed reports whether the cursor is nil.
func (m *Matcher) Failed() bool { return m.cursor == nil }

// Fail clears the cursor.
func (m *Matcher) Fail() { m.cursor = nil }

// SetCursor repositions the matcher, e.g. to retry an alternative from a
// saved node. A nil n fails the matcher.
func (m *Matcher) SetCursor(n bytecode.Node) {
	if n == nil {
		m.cursor = nil
		return
	}
	m.cursor = n
}

// Var returns the instruction bound to name, or nil.
func (m *Matcher) Var(name string) *bytecode.VarInsn { return m.vars[name] }

// FirstIsALoad0 positions the cursor on the first opcode of l if it is
// ALOAD 0, and fails otherwise.
func (m *Matcher) FirstIsALoad0(l *bytecode.List) {
	m.SetCursor(l.First())
	m.SkipNonOpcodes()
	if v, ok := m.cursor.(*bytecode.VarInsn); ok && v.Op == bytecode.OpAload && v.Var == 0 {
		return
	}
	m.cursor = nil
}

// SkipNonOpcodes advances past labels, line numbers and frames.
func (m *Matcher) SkipNonOpcodes() {
	m.cursor = SkipNonOpcodes(m.cursor)
}

// Next moves to the next opcode instruction.
func (m *Matcher) Next() {
	if m.cursor == nil {
		return
	}
	m.cursor = m.cursor.Next()
	m.SkipNonOpcodes()
}

// NextIs moves to the next opcode instruction and fails unless it has
// opcode op.
func (m *Matcher) NextIs(op int) {
	m.Next()
	if m.cursor != nil && m.cursor.Opcode() != op {
		m.cursor = nil
	}
}

// NextMatches moves to the next opcode instruction and fails unless p
// holds for it.
func (m *Matcher) NextMatches(p Predicate) {
	m.Next()
	if m.cursor != nil && !p(m.cursor) {
		m.cursor = nil
	}
}

// NextIsTyped moves to the next opcode instruction and fails unless it
// has opcode op, is a T, and pred (when non-nil) accepts it. It returns
// the matched node, or the zero T on failure.
func NextIsTyped[T bytecode.Node](m *Matcher, op int, pred func(T) bool) T {
	var zero T
	m.NextIs(op)
	if m.cursor == nil {
		return zero
	}
	n, ok := m.cursor.(T)
	if !ok || (pred != nil && !pred(n)) {
		m.cursor = nil
		return zero
	}
	return n
}

// NextIsVar matches a local variable instruction with opcode op. The
// first match under name binds its slot; later matches under the same
// name must use that slot.
func (m *Matcher) NextIsVar(op int, name string) {
	actual := NextIsTyped[*bytecode.VarInsn](m, op, nil)
	if actual == nil {
		return
	}
	expected, ok := m.vars[name]
	if !ok {
		m.vars[name] = actual
		return
	}
	if expected.Var != actual.Var {
		m.cursor = nil
	}
}

// NextIsType matches a type instruction with opcode op and descriptor desc.
func (m *Matcher) NextIsType(op int, desc string) {
	NextIsTyped(m, op, func(t *bytecode.TypeInsn) bool { return t.Desc == desc })
}

// NextIsField matches a field instruction with exactly this reference.
func (m *Matcher) NextIsField(op int, owner, name, desc string) {
	NextIsTyped(m, op, func(f *bytecode.FieldInsn) bool {
		return f.Owner == owner && f.Name == name && f.Desc == desc
	})
}

// NextIsInvoke matches a method instruction with exactly this reference.
func (m *Matcher) NextIsInvoke(op int, owner, name, desc string) {
	NextIsTyped(m, op, func(mi *bytecode.MethodInsn) bool {
		return mi.Owner == owner && mi.Name == name && mi.Desc == desc
	})
}

// NextIsInvokeSuper matches INVOKESPECIAL owner.<init>desc.
func (m *Matcher) NextIsInvokeSuper(owner, desc string) {
	m.NextIsInvoke(bytecode.OpInvokespecial, owner, InitName, desc)
}

// NextIsSwitch matches TABLESWITCH or LOOKUPSWITCH.
func (m *Matcher) NextIsSwitch() {
	m.NextMatches(Opcodes(bytecode.OpTableswitch, bytecode.OpLookupswitch))
}

// Forward moves the cursor to the first node at or after it satisfying
// p. The matcher fails when the list ends first.
func (m *Matcher) Forward(p Predicate) bytecode.Node {
	m.cursor = ForwardFrom(m.cursor, p)
	return m.cursor
}

// Backward moves the cursor to the first node at or before it satisfying
// p. The matcher fails when the list starts first.
func (m *Matcher) Backward(p Predicate) bytecode.Node {
	m.cursor = BackwardFrom(m.cursor, p)
	return m.cursor
}

// SkipNonOpcodes returns the first opcode instruction at or after n.
func SkipNonOpcodes(n bytecode.Node) bytecode.Node {
	for n != nil && n.Opcode() < 0 {
		n = n.Next()
	}
	return n
}

// ForwardFrom returns the first node at or after n satisfying p, or nil.
func ForwardFrom(n bytecode.Node, p Predicate) bytecode.Node {
	for n != nil && !p(n) {
		n = n.Next()
	}
	return n
}

// BackwardFrom returns the first node at or before n satisfying p, or nil.
func BackwardFrom(n bytecode.Node, p Predicate) bytecode.Node {
	for n != nil && !p(n) {
		n = n.Prev()
	}
	return n
}

// Count returns how many nodes from n to the end of the list satisfy p.
func Count(n bytecode.Node, p Predicate) int {
	count := 0
	for ; n != nil; n = n.Next() {
		if p(n) {
			count++
		}
	}
	return count
}

// PrevOpcode returns the closest opcode instruction before n, or nil.
func PrevOpcode(n bytecode.Node) bytecode.Node {
	if n == nil {
		return nil
	}
	return BackwardFrom(n.Prev(), Not(Markers))
}

// NextOpcode returns the closest opcode instruction after n, or nil.
func NextOpcode(n bytecode.Node) bytecode.Node {
	if n == nil {
		return nil
	}
	return SkipNonOpcodes(n.Next())
}
