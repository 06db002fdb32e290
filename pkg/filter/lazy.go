package filter

import (
	"strings"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// LazyGuardDetector ignores the accessor of a lazy val, which only tests
// the bitmap and delegates to name$lzycompute:
//
//	aload 0; getfield Cls.bitmap$0 Z; ifne L0
//	aload 0; invokespecial Cls.x$lzycompute ()T; goto L1
//	L0: aload 0; getfield Cls.x T
//	L1: areturn
type LazyGuardDetector struct{}

func (LazyGuardDetector) Name() string { return "lazy-guard" }

func (LazyGuardDetector) Detect(m *bytecode.Method, ctx Context, out Output) {
	if strings.HasSuffix(m.Name, LazySuffix) {
		return
	}
	mt := NewMatcher(nil)
	mt.FirstIsALoad0(m.Instructions)
	nextIsBitmapTest(mt, ctx)
	mt.Forward(MethodIs(bytecode.OpInvokespecial, ctx.ClassName(), m.Name+LazySuffix, m.Desc))
	mt.Forward(Returns)
	if mt.Failed() {
		return
	}
	ignoreAll(m, out)
}

// nextIsBitmapTest matches a read of a bitmap$ field followed by the test
// of one bit, and leaves the cursor on the conditional branch. The idiom
// depends on the field width:
//
//	Z: ifeq|ifne
//	B: <int>; iand; i2b; (ifeq|ifne | <int>; if_icmpeq|if_icmpne)
//	I: <int>; iand; (ifeq|ifne | <int>; if_icmpeq|if_icmpne)
//	J: <long>; land; lconst_0; lcmp; ifeq|ifne
func nextIsBitmapTest(mt *Matcher, ctx Context) {
	bitmap := NextIsTyped(mt, bytecode.OpGetfield, func(f *bytecode.FieldInsn) bool {
		return f.Owner == ctx.ClassName() && strings.HasPrefix(f.Name, BitmapPrefix)
	})
	if bitmap == nil {
		return
	}
	zeroTest := Opcodes(bytecode.OpIfeq, bytecode.OpIfne)
	switch bitmap.Desc {
	case "Z":
		mt.NextMatches(zeroTest)
	case "B":
		mt.NextMatches(IntConstants)
		mt.NextIs(bytecode.OpIand)
		mt.NextIs(bytecode.OpI2b)
		nextIsIntBitTest(mt)
	case "I":
		mt.NextMatches(IntConstants)
		mt.NextIs(bytecode.OpIand)
		nextIsIntBitTest(mt)
	case "J":
		mt.NextMatches(LongConstants)
		mt.NextIs(bytecode.OpLand)
		mt.NextIs(bytecode.OpLconst0)
		mt.NextIs(bytecode.OpLcmp)
		mt.NextMatches(zeroTest)
	default:
		mt.Fail()
	}
}

func nextIsIntBitTest(mt *Matcher) {
	start := mt.Cursor()
	mt.NextMatches(Opcodes(bytecode.OpIfeq, bytecode.OpIfne))
	if !mt.Failed() || start == nil {
		return
	}
	mt.SetCursor(start)
	mt.NextMatches(IntConstants)
	mt.NextMatches(Opcodes(bytecode.OpIfIcmpeq, bytecode.OpIfIcmpne))
}

// LazyComputeDetector handles name$lzycompute, the synchronized half of a
// lazy val. It ignores the locking, the bitmap re-check, the unlock and
// the exceptional unlock, and keeps the assignment of the value:
//
//	aload 0; dup; astore 1; monitorenter       \ ignored
//	aload 0; getfield bitmap$0 Z; ifne L0      /
//	aload 0; ...; putfield Cls.x T             kept
//	aload 0; iconst_1; putfield bitmap$0 Z     kept
//	L0: aload 1; monitorexit                   ignored
//	aload 0; getfield Cls.x T; areturn         kept
//	aload 1; monitorexit; athrow               ignored
//
// Either everything matches or nothing is reported.
type LazyComputeDetector struct{}

func (LazyComputeDetector) Name() string { return "lazy-compute" }

func (LazyComputeDetector) Detect(m *bytecode.Method, ctx Context, out Output) {
	field, ok := strings.CutSuffix(m.Name, LazySuffix)
	if !ok || field == "" {
		return
	}
	fieldDesc := bytecode.ReturnType(m.Desc)
	if m.Desc != bytecode.MethodDesc(fieldDesc) || fieldDesc == "V" {
		return
	}
	l := m.Instructions
	var ranges [][2]bytecode.Node

	// lock
	mt := NewMatcher(nil)
	mt.FirstIsALoad0(l)
	mt.NextIs(bytecode.OpDup)
	mt.NextIsVar(bytecode.OpAstore, "lock")
	mt.NextIs(bytecode.OpMonitorenter)
	// re-check
	nextIsSelf(mt)
	nextIsBitmapTest(mt, ctx)
	if mt.Failed() {
		return
	}
	ranges = append(ranges, [2]bytecode.Node{l.First(), mt.Cursor()})
	lock := mt.Var("lock").Var

	// payload
	mt.Forward(FieldIs(bytecode.OpPutfield, ctx.ClassName(), field, fieldDesc))

	// unlock
	exit := mt.Forward(Opcodes(bytecode.OpMonitorexit))
	if exit == nil || !isLoad(PrevOpcode(exit), bytecode.OpAload, lock) {
		return
	}
	ranges = append(ranges, [2]bytecode.Node{PrevOpcode(exit), exit})

	// value read; whatever lies between the unlock and it is ignored
	get := mt.Forward(FieldIs(bytecode.OpGetfield, ctx.ClassName(), field, fieldDesc))
	self := PrevOpcode(get)
	if get == nil || !isLoad(self, bytecode.OpAload, 0) {
		return
	}
	if from, to := exit.Next(), self.Prev(); from != nil && to != nil && from.Index() <= to.Index() {
		ranges = append(ranges, [2]bytecode.Node{from, to})
	}
	ret := mt.Forward(Returns)
	if ret == nil {
		return
	}

	// exceptional unlock, placed after the return by scalac 2.11 and
	// before it by 2.12
	handler := Predicate(func(n bytecode.Node) bool { return isUnlockAndThrow(n, lock) })
	if h := ForwardFrom(ret.Next(), handler); h != nil {
		ranges = append(ranges, [2]bytecode.Node{ret.Next(), l.Last()})
	} else if h := BackwardFrom(ret.Prev(), handler); h != nil {
		ranges = append(ranges, [2]bytecode.Node{h, NextOpcode(NextOpcode(h))})
	} else {
		return
	}

	for _, r := range ranges {
		out.Ignore(r[0], r[1])
	}
}

// nextIsSelf matches ALOAD 0.
func nextIsSelf(mt *Matcher) {
	NextIsTyped(mt, bytecode.OpAload, func(v *bytecode.VarInsn) bool { return v.Var == 0 })
}

func isLoad(n bytecode.Node, op, slot int) bool {
	v, ok := n.(*bytecode.VarInsn)
	return ok && v.Op == op && v.Var == slot
}

// isUnlockAndThrow matches aload <lock>; monitorexit; athrow starting at n.
func isUnlockAndThrow(n bytecode.Node, lock int) bool {
	if !isLoad(n, bytecode.OpAload, lock) {
		return false
	}
	mt := NewMatcher(n)
	mt.NextIs(bytecode.OpMonitorexit)
	mt.NextIs(bytecode.OpAthrow)
	return !mt.Failed()
}
