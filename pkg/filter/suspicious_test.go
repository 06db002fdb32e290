package filter

import "testing"

func TestSuspiciousNoLines(t *testing.T) {
	c := parseClass(t, `
class public com/acme/Foo extends java/lang/Object
@Lscala/reflect/ScalaSignature;
method public f ()I
L0:
  line 3 L0
  iconst_1
  ireturn
end
method public static $anonfun$f$1 ()I
  iconst_2
  ireturn
end
end
`)
	assertRanges(t, whole(2), detect(t, SuspiciousDetector{}, c, "$anonfun$f$1"))
	assertRanges(t, nil, detect(t, SuspiciousDetector{}, c, "f"))

	// compiled without line numbers
	c = parseClass(t, `
class public com/acme/Foo extends java/lang/Object
@Lscala/reflect/ScalaSignature;
method public f ()I
  iconst_1
  ireturn
end
method public g ()I
  iconst_2
  ireturn
end
end
`)
	assertRanges(t, nil, detect(t, SuspiciousDetector{}, c, "f"))
}

func TestSuspiciousOuterNullCheck(t *testing.T) {
	tests := []struct {
		name  string
		check string
		local string
		want  [][2]int
	}{
		{"null", `
  aload 1
  ifnonnull L1
  aconst_null
  athrow`, "", [][2]int{{2, 5}}},
		{"npe", `
  aload 1
  ifnonnull L1
  new java/lang/NullPointerException
  dup
  invokespecial java/lang/NullPointerException.<init> ()V
  athrow`, "", [][2]int{{2, 7}}},
		{"named outer", `
  aload 1
  ifnonnull L1
  aconst_null
  athrow`, "  local 1 $outer Lcom/acme/Outer; L0 L2\n", [][2]int{{2, 5}}},
		{"user parameter", `
  aload 1
  ifnonnull L1
  aconst_null
  athrow`, "  local 1 other Lcom/acme/Outer; L0 L2\n", nil},
		{"no throw", `
  aload 1
  ifnonnull L1
  aconst_null
  pop`, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := parseClass(t, `
class public com/acme/Outer$Inner extends java/lang/Object
@Lscala/reflect/ScalaSignature;
field private final $outer Lcom/acme/Outer;
method public <init> (Lcom/acme/Outer;)V
L0:
  line 5 L0`+tt.check+`
L1:
  aload 0
  aload 1
  putfield com/acme/Outer$Inner.$outer Lcom/acme/Outer;
  aload 0
  invokespecial java/lang/Object.<init> ()V
L2:
  return
`+tt.local+`end
end
`)
			assertRanges(t, tt.want, detect(t, SuspiciousDetector{}, c, InitName))
		})
	}
}
