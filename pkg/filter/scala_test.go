package filter

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

func TestIsScalaClass(t *testing.T) {
	tests := []struct {
		name string
		c    *bytecode.Class
		want bool
	}{
		{"signature", &bytecode.Class{Annotations: []string{ScalaSignatureAnnotation}}, true},
		{"long signature", &bytecode.Class{Annotations: []string{ScalaLongSignatureAnnotation}}, true},
		{"ScalaSig", &bytecode.Class{Attributes: []string{ScalaSigAttribute}}, true},
		{"Scala", &bytecode.Class{Attributes: []string{"SourceFile", ScalaAttribute}}, true},
		{"java", &bytecode.Class{Annotations: []string{"Ljava/lang/Deprecated;"}, Attributes: []string{"SourceFile"}}, false},
		// attribute names are not annotation descriptors
		{"mixed up", &bytecode.Class{Annotations: []string{ScalaSigAttribute}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsScalaClass(NewContext(tt.c)))
		})
	}
}

func TestIsModuleClass(t *testing.T) {
	module := func(name string, access int, desc string) *bytecode.Class {
		return &bytecode.Class{
			Name:   name,
			Fields: []*bytecode.Field{{Access: access, Name: ModuleField, Desc: desc}},
		}
	}
	sf := bytecode.AccPublic | bytecode.AccStatic | bytecode.AccFinal
	assert.True(t, IsModuleClass(NewContext(module("a/Foo$", sf, "La/Foo$;"))))
	assert.False(t, IsModuleClass(NewContext(module("a/Foo", sf, "La/Foo;"))))
	assert.False(t, IsModuleClass(NewContext(module("a/Foo$", sf, "La/Bar$;"))))
	assert.False(t, IsModuleClass(NewContext(module("a/Foo$", bytecode.AccPublic, "La/Foo$;"))))
	assert.False(t, IsModuleClass(NewContext(&bytecode.Class{Name: "a/Foo$"})))
}

func TestFindNeedsSelector(t *testing.T) {
	ctx := NewContext(&bytecode.Class{Name: "a/Foo"})
	assert.Panics(t, func() { FindFields(ctx, "", "") })
	assert.Panics(t, func() { FindMethods(ctx, "", "") })
	assert.Nil(t, FindField(ctx, "x", ""))
	assert.Nil(t, FindMethod(ctx, "", "()V"))
}

func TestLines(t *testing.T) {
	c := parseClass(t, `
class public com/acme/Foo extends java/lang/Object
@Lscala/reflect/ScalaSignature;
method public <init> ()V
L0:
  line 2 L0
  aload 0
  invokespecial java/lang/Object.<init> ()V
  return
end
method public a ()I
L0:
  line 2 L0
  iconst_1
  ireturn
end
method public b ()I
L0:
  line 5 L0
  iconst_1
L1:
  line 6 L1
  ireturn
end
method public c ()I
L0:
  line 6 L0
  iconst_2
  ireturn
end
method public d ()I
L0:
  line 6 L0
  iconst_3
  ireturn
end
method public e ()I
  iconst_4
  ireturn
end
end
`)
	ctx := NewContext(c)
	m := func(name string) *bytecode.Method { return FindMethod(ctx, name, "") }

	assert.True(t, IsOneLiner(m("a")))
	assert.False(t, IsOneLiner(m("b")))
	assert.False(t, IsOneLiner(m("e")))
	assert.False(t, HasLines(m("e")))
	assert.Equal(t, 5, FirstLine(m("b")).Line)
	assert.Equal(t, 6, LastLine(m("b")).Line)

	assert.True(t, IsOnInitLine(m("a"), ctx))
	assert.False(t, IsOnInitLine(m("b"), ctx))
	assert.False(t, IsOnInitLine(m("e"), ctx))

	assert.Equal(t, 1, SameLineSiblingCount(m("a"), ctx))
	assert.Equal(t, 2, SameLineSiblingCount(m("b"), ctx))
	assert.Equal(t, 2, SameLineSiblingCount(m("c"), ctx))
	assert.Equal(t, 0, SameLineSiblingCount(m("e"), ctx))

	// the index is built once per class
	built := ctx.(*classContext).lines
	assert.Len(t, built, 3)
	assert.Equal(t, 2, SameLineSiblingCount(m("d"), ctx))
	assert.Equal(t, reflect.ValueOf(built).Pointer(), reflect.ValueOf(ctx.(*classContext).lines).Pointer())

	// other contexts index on every call
	plain := struct{ Context }{ctx}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		assert.Equal(t, SameLineSiblingCount(m(name), ctx), SameLineSiblingCount(m(name), plain), name)
	}
}

func TestModuleDesc(t *testing.T) {
	assert.Equal(t, "Lcom/acme/Foo$;", ModuleDesc("com/acme/Foo"))
}
