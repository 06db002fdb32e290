package filter

import (
	"testing"
)

const accessorClass = `
class com/acme/Foo
@Lscala/reflect/ScalaSignature;
field private final x I
field private y Ljava/lang/String;
field private z J
method public x ()I
L0:
  line 3 L0
  aload 0
  getfield com/acme/Foo.x I
  ireturn
end
method public y ()Ljava/lang/String;
  aload 0
  getfield com/acme/Foo.y Ljava/lang/String;
  areturn
end
method public y_$eq (Ljava/lang/String;)V
L0:
  line 4 L0
  aload 0
  aload 1
  putfield com/acme/Foo.y Ljava/lang/String;
  return
end
method public z_$eq (J)V
  aload 0
  lload 1
  putfield com/acme/Foo.z J
  return
end
method public z ()J
  aload 0
  invokevirtual com/acme/Foo.computeZ ()J
  lreturn
end
method public w ()I
  aload 0
  getfield com/acme/Foo.x I
  ireturn
end
method public x2 ()I
  aload 0
  getfield com/acme/Other.x2 I
  ireturn
end
end
`

func TestAccessorDetector(t *testing.T) {
	c := parseClass(t, accessorClass)
	d := &AccessorDetector{MaxNodes: 10}
	tests := []struct {
		method string
		want   [][2]int
	}{
		{"x", whole(5)},
		{"y", whole(3)},
		{"y_$eq", whole(6)},
		{"z_$eq", whole(4)},
		// reads through a call rather than a field instruction
		{"z", nil},
		// name differs from the field
		{"w", nil},
		// field of another class
		{"x2", nil},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assertRanges(t, tt.want, detect(t, d, c, tt.method))
		})
	}
}

func TestAccessorExtraInstruction(t *testing.T) {
	c := parseClass(t, `
class com/acme/Foo
attribute ScalaSig
field private final x I
method public x ()I
  aload 0
  getfield com/acme/Foo.x I
  iconst_1
  iadd
  ireturn
end
method public x_$eq (I)V
  aload 0
  iload 1
  putfield com/acme/Foo.x I
  aload 0
  invokevirtual com/acme/Foo.changed ()V
  return
end
end
`)
	d := &AccessorDetector{}
	assertRanges(t, nil, detect(t, d, c, "x"))
	assertRanges(t, nil, detect(t, d, c, "x_$eq"))
}

func TestAccessorMaxNodes(t *testing.T) {
	c := parseClass(t, accessorClass)
	assertRanges(t, nil, detect(t, &AccessorDetector{MaxNodes: 4}, c, "x"))
	// the bound itself is rejected
	assertRanges(t, nil, detect(t, &AccessorDetector{MaxNodes: 5}, c, "x"))
	assertRanges(t, whole(5), detect(t, &AccessorDetector{MaxNodes: 6}, c, "x"))
	assertRanges(t, whole(5), detect(t, &AccessorDetector{}, c, "x"))
}
