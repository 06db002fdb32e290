package filter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/scalafilter/pkg/bytecode"
	"github.com/daimatz/scalafilter/pkg/listing"
)

func instructions(t *testing.T, src string) *bytecode.List {
	t.Helper()
	m, err := listing.ParseInstructions(src)
	require.NoError(t, err)
	return m.Instructions
}

func TestFailedMatcherStaysFailed(t *testing.T) {
	l := instructions(t, `
L0:
  line 1 L0
  aload 0
  getfield A.x I
  astore 1
  aload 1
  ireturn
`)
	steps := map[string]func(*Matcher){
		"SkipNonOpcodes":    func(m *Matcher) { m.SkipNonOpcodes() },
		"Next":              func(m *Matcher) { m.Next() },
		"NextIs":            func(m *Matcher) { m.NextIs(bytecode.OpAload) },
		"NextMatches":       func(m *Matcher) { m.NextMatches(Markers) },
		"NextIsVar":         func(m *Matcher) { m.NextIsVar(bytecode.OpAload, "v") },
		"NextIsType":        func(m *Matcher) { m.NextIsType(bytecode.OpNew, "A") },
		"NextIsField":       func(m *Matcher) { m.NextIsField(bytecode.OpGetfield, "A", "x", "I") },
		"NextIsInvoke":      func(m *Matcher) { m.NextIsInvoke(bytecode.OpInvokestatic, "A", "m", "()V") },
		"NextIsInvokeSuper": func(m *Matcher) { m.NextIsInvokeSuper("A", "()V") },
		"NextIsSwitch":      func(m *Matcher) { m.NextIsSwitch() },
		"NextIsTyped": func(m *Matcher) {
			NextIsTyped[*bytecode.FieldInsn](m, bytecode.OpGetfield, nil)
		},
		"Forward":  func(m *Matcher) { m.Forward(Returns) },
		"Backward": func(m *Matcher) { m.Backward(Markers) },
	}
	for name, step := range steps {
		t.Run(name, func(t *testing.T) {
			m := NewMatcher(l.First())
			m.Fail()
			step(m)
			assert.True(t, m.Failed())
			assert.Nil(t, m.Cursor())
			assert.Nil(t, m.Var("v"))
		})
	}
}

func TestNextIs(t *testing.T) {
	l := instructions(t, `
L0:
  line 1 L0
  aload 0
  getfield A.x I
  ireturn
`)
	m := NewMatcher(l.First())
	m.NextIs(bytecode.OpAload)
	require.False(t, m.Failed())
	assert.Same(t, l.Get(2), m.Cursor())

	m.NextIs(bytecode.OpGetfield)
	assert.Same(t, l.Get(3), m.Cursor())

	// opcode mismatch
	m.NextIs(bytecode.OpAreturn)
	assert.True(t, m.Failed())

	// running off the end
	m = NewMatcher(l.Last())
	m.Next()
	assert.True(t, m.Failed())
}

func TestSkipNonOpcodes(t *testing.T) {
	l := instructions(t, `
L0:
  line 1 L0
  frame
  nop
`)
	m := NewMatcher(l.First())
	m.SkipNonOpcodes()
	assert.Same(t, l.Get(3), m.Cursor())
	m.SkipNonOpcodes()
	assert.Same(t, l.Get(3), m.Cursor())

	m = NewMatcher(instructions(t, "L0:").First())
	m.SkipNonOpcodes()
	assert.True(t, m.Failed())
}

func TestNextIsVar(t *testing.T) {
	consistent := instructions(t, `
  aload 0
  dup
  astore 3
  monitorenter
  aload 3
  monitorexit
`)
	inconsistent := instructions(t, `
  aload 0
  dup
  astore 3
  monitorenter
  aload 2
  monitorexit
`)
	match := func(l *bytecode.List) *Matcher {
		m := NewMatcher(nil)
		m.FirstIsALoad0(l)
		m.NextIs(bytecode.OpDup)
		m.NextIsVar(bytecode.OpAstore, "lock")
		m.NextIs(bytecode.OpMonitorenter)
		m.NextIsVar(bytecode.OpAload, "lock")
		m.NextIs(bytecode.OpMonitorexit)
		return m
	}

	m := match(consistent)
	require.False(t, m.Failed())
	assert.Equal(t, 3, m.Var("lock").Var)
	assert.Same(t, consistent.Get(2), bytecode.Node(m.Var("lock")))

	m = match(inconsistent)
	assert.True(t, m.Failed())
	// the first binding survives the failure
	assert.Equal(t, 3, m.Var("lock").Var)
}

func TestNextIsVarFailsAtInconsistency(t *testing.T) {
	for _, nops := range []int{0, 1, 3} {
		prefix := strings.Repeat("nop\n", nops)
		for slot, ok := range map[int]bool{1: true, 2: false} {
			l := instructions(t, fmt.Sprintf("nop\nastore 1\n%saload %d\nreturn", prefix, slot))
			m := NewMatcher(l.First())
			m.NextIsVar(bytecode.OpAstore, "x")
			for range nops {
				m.NextIs(bytecode.OpNop)
			}
			m.NextIsVar(bytecode.OpAload, "x")
			m.NextIs(bytecode.OpReturn)
			assert.Equal(t, ok, !m.Failed(), "%d nops, slot %d", nops, slot)
		}
	}
}

func TestNextIsTyped(t *testing.T) {
	l := instructions(t, `
  aload 0
  getfield A.x I
  invokevirtual A.m ()V
  new A
  tableswitch 0 0 L0 L0
L0:
  return
`)
	m := NewMatcher(l.First())
	f := NextIsTyped(m, bytecode.OpGetfield, func(f *bytecode.FieldInsn) bool { return f.Name == "x" })
	require.NotNil(t, f)
	assert.Equal(t, "A", f.Owner)

	m.SetCursor(l.Get(0))
	m.NextIsField(bytecode.OpGetfield, "A", "y", "I")
	assert.True(t, m.Failed())

	m.SetCursor(l.Get(1))
	m.NextIsInvoke(bytecode.OpInvokevirtual, "A", "m", "()V")
	m.NextIsType(bytecode.OpNew, "A")
	m.NextIsSwitch()
	m.NextIs(bytecode.OpReturn)
	assert.False(t, m.Failed())

	m.SetCursor(l.Get(0))
	got := NextIsTyped[*bytecode.MethodInsn](m, bytecode.OpGetfield, nil)
	assert.Nil(t, got)
	assert.True(t, m.Failed())
}

func TestSearch(t *testing.T) {
	l := instructions(t, `
L0:
  line 1 L0
  aload 0
  ifnull L1
  aload 0
  areturn
L1:
  aconst_null
  areturn
`)
	// the start node itself is tested first
	m := NewMatcher(l.Get(2))
	assert.Same(t, l.Get(2), m.Forward(Opcodes(bytecode.OpAload)))

	m.Next()
	assert.Same(t, l.Get(5), m.Forward(Returns))
	assert.Same(t, l.Get(5), m.Backward(Returns))
	assert.Same(t, l.Get(3), m.Backward(Jumps))

	assert.Nil(t, m.Forward(Opcodes(bytecode.OpAthrow)))
	assert.True(t, m.Failed())

	assert.Same(t, l.Get(1), BackwardFrom(l.Last(), Lines))
	assert.Nil(t, BackwardFrom(l.Get(0), Lines))
	assert.Nil(t, ForwardFrom(nil, Lines))

	assert.Equal(t, 2, Count(l.First(), Returns))
	assert.Equal(t, 1, Count(l.Get(6), Returns))
	assert.Equal(t, 0, Count(nil, Returns))

	assert.Same(t, l.Get(3), PrevOpcode(l.Get(4)))
	assert.Same(t, l.Get(7), NextOpcode(l.Get(5)))
	assert.Nil(t, NextOpcode(l.Last()))
}

func TestFirstIsALoad0(t *testing.T) {
	m := NewMatcher(nil)
	l := instructions(t, "L0:\nline 1 L0\naload 0\nareturn")
	m.FirstIsALoad0(l)
	assert.Same(t, l.Get(2), m.Cursor())

	m.FirstIsALoad0(instructions(t, "aload 1\nareturn"))
	assert.True(t, m.Failed())
}

func TestPredicates(t *testing.T) {
	l := instructions(t, `
  iconst_m1
  bipush 64
  ldc 7
  ldc 7L
  lconst_1
  getstatic A$.MODULE$ LA$;
  invokespecial java/lang/Object.<init> ()V
`)
	assert.Equal(t, 3, Count(l.First(), IntConstants))
	assert.Equal(t, 2, Count(l.First(), LongConstants))
	assert.True(t, FieldIs(bytecode.OpGetstatic, "", ModuleField, "")(l.Get(5)))
	assert.False(t, FieldIs(bytecode.OpPutstatic, "", ModuleField, "")(l.Get(5)))
	assert.True(t, MethodIs(bytecode.OpInvokespecial, "java/lang/Object", InitName, NoArgsDesc)(l.Get(6)))
	assert.False(t, MethodIs(bytecode.OpInvokespecial, "A", "", "")(l.Get(6)))
	assert.True(t, AnyOf(Returns, IsType[*bytecode.IntInsn]())(l.Get(1)))
	assert.True(t, Not(Markers)(l.Get(1)))
	assert.False(t, FieldIs(bytecode.OpGetstatic, "", "", "")(nil))
}
