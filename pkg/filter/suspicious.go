package filter

import (
	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// SuspiciousDetector ignores code that has no source counterpart:
// methods without any line number in a class compiled with line numbers,
// and the null check of the enclosing instance in inner class
// constructors:
//
//	aload 1
//	ifnonnull L0
//	aconst_null                   // or new java/lang/NullPointerException; dup; invokespecial
//	athrow
//	L0: aload 0; aload 1; putfield Cls.$outer LOuter;
type SuspiciousDetector struct{}

func (SuspiciousDetector) Name() string { return "suspicious" }

func (SuspiciousDetector) Detect(m *bytecode.Method, ctx Context, out Output) {
	if !HasLines(m) {
		for _, other := range ctx.ClassMethods() {
			if other != m && HasLines(other) {
				ignoreAll(m, out)
				return
			}
		}
		return
	}
	if m.Name == InitName {
		if from, to := matchOuterNullCheck(m, ctx); from != nil {
			out.Ignore(from, to)
		}
	}
}

const npe = "java/lang/NullPointerException"

// matchOuterNullCheck returns the bounds of the $outer null check, or
// nils.
func matchOuterNullCheck(m *bytecode.Method, ctx Context) (bytecode.Node, bytecode.Node) {
	mt := NewMatcher(m.Instructions.First())
	load, _ := mt.Forward(Opcodes(bytecode.OpAload)).(*bytecode.VarInsn)
	if load == nil || load.Var != 1 {
		return nil, nil
	}
	if lv := m.Local(1, load); lv != nil && lv.Name != OuterField {
		return nil, nil
	}
	mt.NextIs(bytecode.OpIfnonnull)
	branch := mt.Cursor()
	mt.NextIs(bytecode.OpAconstNull)
	if mt.Failed() {
		mt.SetCursor(branch)
		mt.NextIsType(bytecode.OpNew, npe)
		mt.NextIs(bytecode.OpDup)
		mt.NextIsInvokeSuper(npe, NoArgsDesc)
	}
	throw := NextIsTyped[*bytecode.Insn](mt, bytecode.OpAthrow, nil)
	if throw == nil {
		return nil, nil
	}
	mt.Forward(FieldIs(bytecode.OpPutfield, ctx.ClassName(), OuterField, ""))
	mt.Forward(Opcodes(bytecode.OpReturn))
	if mt.Failed() {
		return nil, nil
	}
	return load, throw
}
