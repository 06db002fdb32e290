package filter

import (
	"strings"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// ValueClassDetector ignores the boxed side of a value class
// (class Meter(val v: Double) extends AnyVal): its constructor, and the
// instance methods that unbox and delegate to the companion:
//
//	getstatic Meter$.MODULE$ LMeter$;
//	aload 0; invokevirtual Meter.v ()D
//	invokevirtual Meter$.plus$extension (DD)D
//	dreturn
type ValueClassDetector struct{}

func (ValueClassDetector) Name() string { return "value-class" }

func (ValueClassDetector) Detect(m *bytecode.Method, ctx Context, out Output) {
	if m.Name == InitName {
		if isValueClass(ctx) && matchValueClassConstructor(m) {
			ignoreAll(m, out)
		}
		return
	}
	if matchExtensionDelegate(m, ctx) {
		ignoreAll(m, out)
	}
}

// isValueClass reports whether the class has one instance field and
// extension methods, either its own or called on its companion.
func isValueClass(ctx Context) bool {
	fields := 0
	for _, f := range ctx.ClassFields() {
		if !f.Is(bytecode.AccStatic) {
			fields++
		}
	}
	if fields != 1 {
		return false
	}
	companion := ctx.ClassName() + "$"
	callsExtension := Predicate(func(n bytecode.Node) bool {
		call, ok := n.(*bytecode.MethodInsn)
		return ok && call.Owner == companion && strings.HasSuffix(call.Name, ExtensionSuffix)
	})
	for _, other := range ctx.ClassMethods() {
		if strings.HasSuffix(other.Name, ExtensionSuffix) {
			return true
		}
		if ForwardFrom(other.Instructions.First(), callsExtension) != nil {
			return true
		}
	}
	return false
}

func matchValueClassConstructor(m *bytecode.Method) bool {
	mt := NewMatcher(nil)
	mt.FirstIsALoad0(m.Instructions)
	mt.Forward(Opcodes(bytecode.OpPutfield))
	mt.Forward(Opcodes(bytecode.OpReturn))
	return !mt.Failed()
}

func matchExtensionDelegate(m *bytecode.Method, ctx Context) bool {
	companion := ctx.ClassName() + "$"
	mt := NewMatcher(m.Instructions.First())
	mt.Forward(FieldIs(bytecode.OpGetstatic, "", ModuleField, ModuleDesc(ctx.ClassName())))
	mt.Forward(func(n bytecode.Node) bool {
		call, ok := n.(*bytecode.MethodInsn)
		if !ok || call.Op != bytecode.OpInvokevirtual || call.Owner != companion {
			return false
		}
		if strings.HasSuffix(m.Name, ExtensionSuffix) && call.Name == m.Name {
			return true
		}
		return call.Name == m.Name+ExtensionSuffix
	})
	mt.NextMatches(Returns)
	return !mt.Failed()
}
