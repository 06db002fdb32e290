package filter

import (
	"strings"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// ForwarderDetector ignores methods whose body only loads a target and
// the arguments, calls the forwarded method and returns its result. Four targets are
// recognized:
//
//   - static forwarders in a companion class, calling Cls$.MODULE$.name
//   - trait forwarders, calling Trait$class.name (2.10, 2.11) or
//     Trait.name$ (2.12+)
//   - value class forwarders, calling Cls$.MODULE$.name$extension
//   - implicit class factories, returning new Cls(args)
//
// A method containing any branch, a store, a throw or any call but the
// forwarded one is never a forwarder.
type ForwarderDetector struct {
	// MaxNodes bounds the method size; zero means no bound.
	MaxNodes int
}

func (*ForwarderDetector) Name() string { return "forwarder" }

func (d *ForwarderDetector) Detect(m *bytecode.Method, ctx Context, out Output) {
	l := m.Instructions
	if d.MaxNodes > 0 && l.Len() > d.MaxNodes {
		return
	}
	if Count(l.First(), Jumps) > 0 {
		return
	}
	for _, match := range []func(*bytecode.Method, Context) bool{
		matchStaticForwarder,
		matchTraitForwarder,
		matchExtensionForwarder,
		matchImplicitFactory,
	} {
		if match(m, ctx) {
			ignoreAll(m, out)
			return
		}
	}
}

// nextIsReturn requires the opcode right after the cursor to be a return.
func nextIsReturn(mt *Matcher) {
	mt.NextMatches(Returns)
}

// sideEffects matches what a forwarder never does besides its call.
var sideEffects = AnyOf(
	IsType[*bytecode.InvokeDynamicInsn](),
	Opcodes(bytecode.OpPutfield, bytecode.OpPutstatic, bytecode.OpAthrow, bytecode.OpMonitorenter),
)

// onlyCall reports whether call is the one invocation in m, not counting
// the calls matched by extra, which may be nil.
func onlyCall(m *bytecode.Method, call bytecode.Node, extra Predicate) bool {
	for _, n := range m.Instructions.Nodes() {
		switch {
		case n == call:
		case Invokes(n):
			if extra == nil || !extra(n) {
				return false
			}
		case sideEffects(n):
			return false
		}
	}
	return true
}

func matchStaticForwarder(m *bytecode.Method, ctx Context) bool {
	companion := ctx.ClassName() + "$"
	mt := NewMatcher(m.Instructions.First())
	mt.SkipNonOpcodes()
	if mt.Failed() || !FieldIs(bytecode.OpGetstatic, companion, ModuleField, ModuleDesc(ctx.ClassName()))(mt.Cursor()) {
		return false
	}
	call := mt.Forward(MethodIs(bytecode.OpInvokevirtual, companion, m.Name, m.Desc))
	nextIsReturn(mt)
	return !mt.Failed() && onlyCall(m, call, nil)
}

func matchTraitForwarder(m *bytecode.Method, ctx Context) bool {
	mt := NewMatcher(nil)
	mt.FirstIsALoad0(m.Instructions)
	mt.Forward(Opcodes(bytecode.OpInvokestatic))
	call, _ := mt.Cursor().(*bytecode.MethodInsn)
	if call == nil {
		return false
	}
	if !(call.Name == m.Name && strings.HasSuffix(call.Owner, TraitImplSuffix)) && call.Name != m.Name+"$" {
		return false
	}
	nextIsReturn(mt)
	return !mt.Failed() && onlyCall(m, call, nil)
}

func matchExtensionForwarder(m *bytecode.Method, ctx Context) bool {
	companion := ctx.ClassName() + "$"
	name := m.Name
	if !strings.HasSuffix(name, ExtensionSuffix) {
		name += ExtensionSuffix
	}
	mt := NewMatcher(m.Instructions.First())
	mt.Forward(FieldIs(bytecode.OpGetstatic, companion, ModuleField, ModuleDesc(ctx.ClassName())))
	call := mt.Forward(MethodIs(bytecode.OpInvokevirtual, companion, name, ""))
	nextIsReturn(mt)
	return !mt.Failed() && onlyCall(m, call, unboxes(ctx))
}

// unboxes matches the getter of the underlying value of a value class.
func unboxes(ctx Context) Predicate {
	return func(n bytecode.Node) bool {
		call, ok := n.(*bytecode.MethodInsn)
		return ok && call.Op == bytecode.OpInvokevirtual && call.Owner == ctx.ClassName() &&
			bytecode.ArgumentCount(call.Desc) == 0
	}
}

func matchImplicitFactory(m *bytecode.Method, ctx Context) bool {
	mt := NewMatcher(m.Instructions.First())
	ctor, _ := mt.Forward(MethodIs(bytecode.OpInvokespecial, "", InitName, "")).(*bytecode.MethodInsn)
	if ctor == nil {
		return false
	}
	desc := strings.TrimSuffix(ctor.Desc, "V") + bytecode.ObjectDesc(ctor.Owner)
	if m.Desc != desc || !strings.HasSuffix(m.Desc, m.Name+";") {
		return false
	}
	nextIsReturn(mt)
	return !mt.Failed() && onlyCall(m, ctor, nil)
}
