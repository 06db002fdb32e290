package filter

import (
	"testing"
)

func TestForwarderShapes(t *testing.T) {
	c := parseClass(t, `
class com/acme/Foo implements com/acme/T com/acme/U
@Lscala/reflect/ScalaSignature;
# static forwarder to the companion
method public static apply (I)Lcom/acme/Foo;
L0:
  line 1 L0
  getstatic com/acme/Foo$.MODULE$ Lcom/acme/Foo$;
  iload 0
  invokevirtual com/acme/Foo$.apply (I)Lcom/acme/Foo;
  areturn
end
# trait forwarder, scalac 2.12
method public greet (Ljava/lang/String;)Ljava/lang/String;
L0:
  line 1 L0
  aload 0
  aload 1
  invokestatic com/acme/T.greet$ (Lcom/acme/T;Ljava/lang/String;)Ljava/lang/String; itf
  areturn
end
# trait forwarder, scalac 2.11
method public size ()I
  aload 0
  invokestatic com/acme/U$class.size (Lcom/acme/U;)I
  ireturn
end
# value class forwarder
method public double ()D
  getstatic com/acme/Foo$.MODULE$ Lcom/acme/Foo$;
  aload 0
  invokevirtual com/acme/Foo.underlying ()D
  invokevirtual com/acme/Foo$.double$extension (D)D
  dreturn
end
# implicit class factory
method public RichInt (I)Lcom/acme/Foo$RichInt;
  new com/acme/Foo$RichInt
  dup
  iload 1
  invokespecial com/acme/Foo$RichInt.<init> (I)V
  areturn
end
# hand written: calls something else
method public static other (I)Lcom/acme/Foo;
  getstatic com/acme/Foo$.MODULE$ Lcom/acme/Foo$;
  iload 0
  invokevirtual com/acme/Foo$.apply (I)Lcom/acme/Foo;
  areturn
end
# hand written: uses the result
method public twice ()I
  aload 0
  invokestatic com/acme/U$class.twice (Lcom/acme/U;)I
  iconst_2
  imul
  ireturn
end
end
`)
	d := &ForwarderDetector{MaxNodes: 64}
	tests := []struct {
		method string
		want   [][2]int
	}{
		{"apply", whole(6)},
		{"greet", whole(6)},
		{"size", whole(3)},
		{"double", whole(5)},
		{"RichInt", whole(5)},
		{"other", nil},
		{"twice", nil},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assertRanges(t, tt.want, detect(t, d, c, tt.method))
		})
	}
}

func TestForwarderRejectsBranches(t *testing.T) {
	c := parseClass(t, `
class com/acme/Foo
@Lscala/reflect/ScalaSignature;
method public static apply (I)Lcom/acme/Foo;
  getstatic com/acme/Foo$.MODULE$ Lcom/acme/Foo$;
  iload 0
  invokevirtual com/acme/Foo$.apply (I)Lcom/acme/Foo;
  areturn
end
method public static apply (J)Lcom/acme/Foo;
  getstatic com/acme/Foo$.MODULE$ Lcom/acme/Foo$;
  lload 0
  lconst_0
  lcmp
  ifge L0
L0:
  lload 0
  invokevirtual com/acme/Foo$.apply (J)Lcom/acme/Foo;
  areturn
end
end
`)
	ctx := NewContext(c)
	assertRanges(t, whole(4), detectIn(t, &ForwarderDetector{}, ctx, "apply", "(I)Lcom/acme/Foo;"))
	assertRanges(t, nil, detectIn(t, &ForwarderDetector{}, ctx, "apply", "(J)Lcom/acme/Foo;"))
}

func TestForwarderMaxNodes(t *testing.T) {
	c := parseClass(t, `
class com/acme/Foo
@Lscala/reflect/ScalaSignature;
method public size ()I
  aload 0
  invokestatic com/acme/U$class.size (Lcom/acme/U;)I
  ireturn
end
end
`)
	assertRanges(t, nil, detect(t, &ForwarderDetector{MaxNodes: 2}, c, "size"))
	assertRanges(t, whole(3), detect(t, &ForwarderDetector{MaxNodes: 3}, c, "size"))
}

func TestForwarderRejectsOtherCalls(t *testing.T) {
	c := parseClass(t, `
class com/acme/Foo implements com/acme/T
@Lscala/reflect/ScalaSignature;
method public static run ()V
  getstatic com/acme/Foo$.MODULE$ Lcom/acme/Foo$;
  invokestatic com/acme/Audit.record ()V
  invokestatic com/acme/Audit.flush ()V
  invokevirtual com/acme/Foo$.run ()V
  return
end
method public greet ()I
  aload 0
  invokevirtual com/acme/Foo.sideEffect ()V
  aload 0
  invokestatic com/acme/T.greet$ (Lcom/acme/T;)I itf
  ireturn
end
method public Bar (I)Lcom/acme/Bar;
  getstatic java/lang/System.out Ljava/io/PrintStream;
  ldc "making a Bar"
  invokevirtual java/io/PrintStream.println (Ljava/lang/String;)V
  new com/acme/Bar
  dup
  iload 1
  invokespecial com/acme/Bar.<init> (I)V
  areturn
end
method public size ()I
  getstatic com/acme/Foo$.MODULE$ Lcom/acme/Foo$;
  aload 0
  invokevirtual com/acme/Foo.underlying ()I
  aload 0
  iconst_1
  invokevirtual com/acme/Foo.weight (I)I
  iadd
  invokevirtual com/acme/Foo$.size$extension (I)I
  ireturn
end
method public count ()I
  getstatic com/acme/Foo$.MODULE$ Lcom/acme/Foo$;
  aload 0
  invokevirtual com/acme/Foo.underlying ()I
  dup
  putstatic com/acme/Foo.last I
  invokevirtual com/acme/Foo$.count$extension (I)I
  ireturn
end
end
`)
	d := &ForwarderDetector{}
	for _, method := range []string{"run", "greet", "Bar", "size", "count"} {
		t.Run(method, func(t *testing.T) {
			assertRanges(t, nil, detect(t, d, c, method))
		})
	}
}
