package filter

import (
	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// Predicate selects instruction nodes for searches and counts.
type Predicate func(bytecode.Node) bool

// Opcodes matches nodes whose opcode is one of ops.
func Opcodes(ops ...int) Predicate {
	var set [256]bool
	for _, op := range ops {
		set[op&0xFF] = true
	}
	return func(n bytecode.Node) bool {
		op := n.Opcode()
		return op >= 0 && set[op]
	}
}

// IsType matches nodes of the concrete type T, e.g.
// IsType[*bytecode.LineNumber]().
func IsType[T bytecode.Node]() Predicate {
	return func(n bytecode.Node) bool {
		_, ok := n.(T)
		return ok
	}
}

// FieldIs matches a field instruction with the given opcode and
// reference. Empty owner, name or desc match anything.
func FieldIs(op int, owner, name, desc string) Predicate {
	return func(n bytecode.Node) bool {
		f, ok := n.(*bytecode.FieldInsn)
		return ok && f.Op == op &&
			(owner == "" || f.Owner == owner) &&
			(name == "" || f.Name == name) &&
			(desc == "" || f.Desc == desc)
	}
}

// MethodIs matches a method instruction with the given opcode and
// reference. Empty owner, name or desc match anything.
func MethodIs(op int, owner, name, desc string) Predicate {
	return func(n bytecode.Node) bool {
		m, ok := n.(*bytecode.MethodInsn)
		return ok && m.Op == op &&
			(owner == "" || m.Owner == owner) &&
			(name == "" || m.Name == name) &&
			(desc == "" || m.Desc == desc)
	}
}

// AnyOf matches when any of ps matches.
func AnyOf(ps ...Predicate) Predicate {
	return func(n bytecode.Node) bool {
		for _, p := range ps {
			if p(n) {
				return true
			}
		}
		return false
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(n bytecode.Node) bool { return !p(n) }
}

var (
	// Returns matches the xRETURN opcodes.
	Returns = Opcodes(bytecode.OpIreturn, bytecode.OpLreturn, bytecode.OpFreturn,
		bytecode.OpDreturn, bytecode.OpAreturn, bytecode.OpReturn)

	// Jumps matches branches and switches.
	Jumps Predicate = func(n bytecode.Node) bool { return bytecode.IsJump(n.Opcode()) }

	// Invokes matches the four invoke opcodes that carry a method reference.
	Invokes = IsType[*bytecode.MethodInsn]()

	// Lines matches line number markers.
	Lines = IsType[*bytecode.LineNumber]()

	// Markers matches labels, line numbers and frames.
	Markers Predicate = bytecode.IsMarker

	// IntConstants matches instructions pushing an int constant.
	IntConstants Predicate = func(n bytecode.Node) bool {
		switch n := n.(type) {
		case *bytecode.Insn:
			return n.Op >= bytecode.OpIconstM1 && n.Op <= bytecode.OpIconst5
		case *bytecode.IntInsn:
			return n.Op == bytecode.OpBipush || n.Op == bytecode.OpSipush
		case *bytecode.LdcInsn:
			_, ok := n.Cst.(int32)
			return ok
		}
		return false
	}

	// LongConstants matches instructions pushing a long constant.
	LongConstants Predicate = func(n bytecode.Node) bool {
		switch n := n.(type) {
		case *bytecode.Insn:
			return n.Op == bytecode.OpLconst0 || n.Op == bytecode.OpLconst1
		case *bytecode.LdcInsn:
			_, ok := n.Cst.(int64)
			return ok
		}
		return false
	}
)
