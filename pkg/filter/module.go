package filter

import (
	"strings"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// ModuleDetector ignores the plumbing of singleton objects: the
// constructor, the static initializer creating the instance, readResolve
// and the lazy initializers of nested objects.
type ModuleDetector struct{}

func (ModuleDetector) Name() string { return "module" }

func (ModuleDetector) Detect(m *bytecode.Method, ctx Context, out Output) {
	if isModuleLazyCompute(m) {
		ignoreAll(m, out)
		return
	}
	if !IsObjectClass(ctx) {
		return
	}
	var matched bool
	switch {
	case m.Name == ReadResolveName && m.Desc == ReadResolveDesc:
		matched = matchReadResolve(m, ctx)
	case m.Name == InitName:
		matched = matchModuleConstructor(m, ctx)
	case m.Name == ClinitName && m.Desc == NoArgsDesc:
		matched = matchModuleStaticInit(m, ctx)
	}
	if matched {
		ignoreAll(m, out)
	}
}

// matchReadResolve matches either
//
//	getstatic Cls$.MODULE$ LCls$;
//	areturn
//
// or, since 2.13,
//
//	new scala/runtime/ModuleSerializationProxy
//	dup
//	ldc LCls$;
//	invokespecial scala/runtime/ModuleSerializationProxy.<init> (Ljava/lang/Class;)V
//	areturn
func matchReadResolve(m *bytecode.Method, ctx Context) bool {
	desc := bytecode.ObjectDesc(ctx.ClassName())
	mt := NewMatcher(m.Instructions.First())
	mt.SkipNonOpcodes()
	if FieldIs(bytecode.OpGetstatic, "", ModuleField, desc)(mt.Cursor()) {
		mt.NextIs(bytecode.OpAreturn)
		return !mt.Failed()
	}
	if n, ok := mt.Cursor().(*bytecode.TypeInsn); !ok || n.Op != bytecode.OpNew || n.Desc != ModuleSerializationProxy {
		return false
	}
	mt.NextIs(bytecode.OpDup)
	NextIsTyped(mt, bytecode.OpLdc, func(n *bytecode.LdcInsn) bool {
		t, ok := n.Cst.(bytecode.Type)
		return ok && t.Desc == desc
	})
	mt.NextIsInvokeSuper(ModuleSerializationProxy, "(Ljava/lang/Class;)V")
	mt.NextIs(bytecode.OpAreturn)
	return !mt.Failed()
}

// matchModuleConstructor accepts a constructor built only from self and
// outer loads, the super and trait constructor calls, the $outer null
// check with its NullPointerException and the stores of MODULE$ and
// $outer.
func matchModuleConstructor(m *bytecode.Method, ctx Context) bool {
	owners := make(map[string]bool)
	for _, i := range ctx.ClassInterfaces() {
		owners[i] = true
		owners[i+TraitImplSuffix] = true
	}
	allowed := AnyOf(
		Opcodes(bytecode.OpAload),
		Returns,
		Markers,
		Opcodes(bytecode.OpIfnonnull, bytecode.OpAconstNull, bytecode.OpNew, bytecode.OpDup, bytecode.OpAthrow),
		MethodIs(bytecode.OpInvokespecial, npe, InitName, NoArgsDesc),
		FieldIs(bytecode.OpPutstatic, "", ModuleField, bytecode.ObjectDesc(ctx.ClassName())),
		FieldIs(bytecode.OpPutfield, ctx.ClassName(), OuterField, ""),
		MethodIs(bytecode.OpInvokespecial, ctx.SuperClassName(), "", ""),
		func(n bytecode.Node) bool {
			call, ok := n.(*bytecode.MethodInsn)
			return ok && call.Op == bytecode.OpInvokestatic && call.Name == TraitInitName && owners[call.Owner]
		},
	)
	return Count(m.Instructions.First(), Not(allowed)) == 0
}

// matchModuleStaticInit matches
//
//	new Cls$
//	[dup]
//	invokespecial Cls$.<init>()V
//	[putstatic Cls$.MODULE$ LCls$;]
//	return
func matchModuleStaticInit(m *bytecode.Method, ctx Context) bool {
	cls := ctx.ClassName()
	mt := NewMatcher(m.Instructions.First())
	mt.SkipNonOpcodes()
	if n, ok := mt.Cursor().(*bytecode.TypeInsn); !ok || n.Op != bytecode.OpNew || n.Desc != cls {
		return false
	}
	if n := NextOpcode(mt.Cursor()); n != nil && n.Opcode() == bytecode.OpDup {
		mt.Next()
	}
	mt.NextIsInvokeSuper(cls, NoArgsDesc)
	if FieldIs(bytecode.OpPutstatic, cls, ModuleField, bytecode.ObjectDesc(cls))(NextOpcode(mt.Cursor())) {
		mt.Next()
	}
	mt.NextIs(bytecode.OpReturn)
	return !mt.Failed()
}

// isModuleLazyCompute matches the initializer of an object nested in a
// method or a class body, e.g. Foo$lzycompute$1(Lscala/runtime/LazyRef;)LFoo$2$;
func isModuleLazyCompute(m *bytecode.Method) bool {
	ret := bytecode.ReturnType(m.Desc)
	if !strings.HasSuffix(ret, "$;") {
		return false
	}
	params := strings.TrimSuffix(m.Desc, ret)
	if params != "("+LazyRefDesc+")" && params != "("+VolatileObjectRefDesc+")" {
		return false
	}
	object, _, found := strings.Cut(m.Name, "$")
	return found && strings.Contains(ret, object)
}
