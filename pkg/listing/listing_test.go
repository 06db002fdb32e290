package listing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

const point = `
# case class Point(x: Int)
class public com/acme/Point implements scala/Product scala/Serializable
@Lscala/reflect/ScalaSignature;
attribute ScalaSig
source Point.scala
field private final x I
method public x ()I
L0:
  line 3 L0
  aload 0
  getfield com/acme/Point.x I
  ireturn
L1:
  local 0 this Lcom/acme/Point; L0 L1
end
method public static main ([Ljava/lang/String;)V
  getstatic java/lang/System.out Ljava/io/PrintStream;
  ldc "hello \"world\""
  invokevirtual java/io/PrintStream.println (Ljava/lang/String;)V
  return
end
end
`

func TestParseClass(t *testing.T) {
	classes, err := ParseString("point.j", point)
	require.NoError(t, err)
	require.Len(t, classes, 1)

	c := classes[0]
	assert.Equal(t, "com/acme/Point", c.Name)
	assert.Equal(t, "java/lang/Object", c.SuperName)
	assert.Equal(t, bytecode.AccPublic, c.Access)
	assert.Equal(t, []string{"scala/Product", "scala/Serializable"}, c.Interfaces)
	assert.Equal(t, []string{"Lscala/reflect/ScalaSignature;"}, c.Annotations)
	assert.Equal(t, []string{"ScalaSig"}, c.Attributes)
	assert.Equal(t, "Point.scala", c.SourceFile)
	require.Len(t, c.Fields, 1)
	assert.Equal(t, &bytecode.Field{Access: bytecode.AccPrivate | bytecode.AccFinal, Name: "x", Desc: "I"}, c.Fields[0])
	require.Len(t, c.Methods, 2)

	x := c.Methods[0]
	assert.Equal(t, "x", x.Name)
	assert.Equal(t, "()I", x.Desc)
	var got []string
	for _, n := range x.Instructions.Nodes() {
		got = append(got, bytecode.Format(n))
	}
	assert.Equal(t, []string{
		"L0:", "line 3 L0", "aload 0", "getfield com/acme/Point.x I", "ireturn", "L1:",
	}, got)
	require.Len(t, x.LocalVariables, 1)
	lv := x.LocalVariables[0]
	assert.Equal(t, "this", lv.Name)
	assert.Same(t, x.Instructions.Get(0), bytecode.Node(lv.Start))
	assert.Same(t, x.Instructions.Get(5), bytecode.Node(lv.End))

	main := c.Methods[1]
	assert.True(t, main.Is(bytecode.AccStatic))
	ldc := main.Instructions.Get(1).(*bytecode.LdcInsn)
	assert.Equal(t, `hello "world"`, ldc.Cst)
}

func TestParseOperands(t *testing.T) {
	m, err := ParseInstructions(`
  iload 1
  tableswitch 0 1 Ldflt La Lb
La:
  lookupswitch Ldflt 7 Lb
Lb:
  invokeinterface scala/Function0.apply ()Ljava/lang/Object; itf
  invokestatic com/acme/T.m$ (Lcom/acme/T;)V
  ldc 5L
  ldc 1.5F
  ldc 2.5D
  ldc -3
  ldc Lcom/acme/Point;
  iinc 2 -1
  bipush 10
  multianewarray [[I 2
  new java/lang/Object
  invokedynamic apply ()Lscala/Function0;
  frame
Ldflt:
  try La Lb Ldflt java/lang/Exception
  return
`)
	require.NoError(t, err)
	l := m.Instructions

	ts := l.Get(1).(*bytecode.TableSwitchInsn)
	assert.Equal(t, 0, ts.Min)
	assert.Equal(t, 1, ts.Max)
	require.Len(t, ts.Labels, 2)
	assert.Same(t, l.Get(2), bytecode.Node(ts.Labels[0]))

	ls := l.Get(3).(*bytecode.LookupSwitchInsn)
	assert.Equal(t, []int{7}, ls.Keys)
	assert.Same(t, ts.Dflt, ls.Dflt)

	itf := l.Get(5).(*bytecode.MethodInsn)
	assert.True(t, itf.Itf)
	static := l.Get(6).(*bytecode.MethodInsn)
	assert.False(t, static.Itf)
	assert.Equal(t, "m$", static.Name)

	var csts []any
	for i := 7; i <= 11; i++ {
		csts = append(csts, l.Get(i).(*bytecode.LdcInsn).Cst)
	}
	assert.Equal(t, []any{int64(5), float32(1.5), 2.5, int32(-3), bytecode.Type{Desc: "Lcom/acme/Point;"}}, csts)

	assert.Equal(t, &bytecode.IincInsn{Var: 2, Incr: -1}, stripLinks(l.Get(12)))
	assert.Equal(t, 2, l.Get(14).(*bytecode.MultiANewArrayInsn).Dims)
	assert.IsType(t, &bytecode.Frame{}, l.Get(17))
	require.Len(t, m.TryCatchBlocks, 1)
	assert.Equal(t, "java/lang/Exception", m.TryCatchBlocks[0].Type)
	assert.Equal(t, bytecode.OpReturn, l.Last().Opcode())
}

// stripLinks copies an iinc so that equality ignores list links.
func stripLinks(n bytecode.Node) *bytecode.IincInsn {
	i := n.(*bytecode.IincInsn)
	return &bytecode.IincInsn{Var: i.Var, Incr: i.Incr}
}

func TestFormatRoundTrip(t *testing.T) {
	src := []string{
		"L0:",
		"line 12 L0",
		"aload 0",
		"getfield com/acme/Foo.bitmap$0 B",
		"iconst_1",
		"iand",
		"i2b",
		"iconst_0",
		"if_icmpne L1",
		"ldc \"x\"",
		"L1:",
		"areturn",
	}
	m, err := ParseInstructions(strings.Join(src, "\n"))
	require.NoError(t, err)
	var got []string
	for _, n := range m.Instructions.Nodes() {
		got = append(got, bytecode.Format(n))
	}
	assert.Equal(t, src, got)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown instruction", "class A\nmethod m ()V\n  frobnicate\nend\nend", `t.j:3:3: unknown instruction "frobnicate"`},
		{"short form", "class A\nmethod m ()V\n  aload_0\nend\nend", `unknown instruction "aload_0"`},
		{"undefined label", "class A\nmethod m ()V\n  goto Lx\nend\nend", "t.j:3:8: undefined label Lx"},
		{"duplicate label", "class A\nmethod m ()V\nL0:\nL0:\nend\nend", "label L0 defined twice"},
		{"operand count", "class A\nmethod m ()V\n  aload\nend\nend", "aload wants 1 operands, got 0"},
		{"bad integer", "class A\nmethod m ()V\n  aload x\nend\nend", `"x" is not an integer`},
		{"bad member", "class A\nmethod m ()V\n  getfield x I\nend\nend", `"x" is not an Owner.name reference`},
		{"bad descriptor", "class A\nmethod m V\nend\nend", "invalid method descriptor"},
		{"outside class", "field x I", `"field" outside a class`},
		{"unclosed method", "class A\nmethod m ()V\n  return", "method m not closed"},
		{"unclosed class", "class A", "class A not closed"},
		{"tableswitch labels", "class A\nmethod m ()V\nL0:\n  tableswitch 0 2 L0 L0\nend\nend", "tableswitch 0..2 wants 3 labels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString("t.j", tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseMultipleClasses(t *testing.T) {
	classes, err := ParseString("", `
class com/acme/Foo
end
class final com/acme/Foo$ extends java/lang/Object
field public static final MODULE$ Lcom/acme/Foo$;
end
`)
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, "com/acme/Foo$", classes[1].Name)
	assert.True(t, classes[1].Fields[0].Is(bytecode.AccStatic|bytecode.AccFinal))
}
