package filter

import "testing"

const loggerClass = `
class public com/acme/Svc extends java/lang/Object
@Lscala/reflect/ScalaSignature;
field private final log Lorg/slf4j/Logger;
`

func TestLoggingDetector(t *testing.T) {
	tests := []struct {
		name string
		body string
		want [][2]int
	}{
		{"else branch", `
  aload 0
  getfield com/acme/Svc.log Lorg/slf4j/Logger;
  invokeinterface org/slf4j/Logger.isDebugEnabled ()Z itf
  ifeq L0
  aload 0
  getfield com/acme/Svc.log Lorg/slf4j/Logger;
  ldc "x"
  invokeinterface org/slf4j/Logger.debug (Ljava/lang/String;)V itf
  getstatic scala/runtime/BoxedUnit.UNIT Lscala/runtime/BoxedUnit;
  goto L1
L0:
  getstatic scala/runtime/BoxedUnit.UNIT Lscala/runtime/BoxedUnit;
L1:
  pop
  return`, [][2]int{{3, 12}}},
		{"statement", `
  aload 0
  getfield com/acme/Svc.log Lorg/slf4j/Logger;
  invokeinterface org/slf4j/Logger.isDebugEnabled ()Z itf
  ifeq L0
  aload 0
  getfield com/acme/Svc.log Lorg/slf4j/Logger;
  ldc "x"
  invokeinterface org/slf4j/Logger.debug (Ljava/lang/String;)V itf
L0:
  return`, [][2]int{{3, 8}}},
		{"inverted", `
  aload 0
  getfield com/acme/Svc.log Lorg/slf4j/Logger;
  invokeinterface org/slf4j/Logger.isDebugEnabled ()Z itf
  ifne L0
  return
L0:
  return`, nil},
		{"two guards", `
  aload 0
  getfield com/acme/Svc.log Lorg/slf4j/Logger;
  invokeinterface org/slf4j/Logger.isDebugEnabled ()Z itf
  ifeq L0
  aload 0
  getfield com/acme/Svc.log Lorg/slf4j/Logger;
  ldc "x"
  invokeinterface org/slf4j/Logger.debug (Ljava/lang/String;)V itf
L0:
  aload 0
  getfield com/acme/Svc.log Lorg/slf4j/Logger;
  invokeinterface org/slf4j/Logger.isTraceEnabled ()Z itf
  ifeq L1
  aload 0
  getfield com/acme/Svc.log Lorg/slf4j/Logger;
  ldc "y"
  invokeinterface org/slf4j/Logger.trace (Ljava/lang/String;)V itf
L1:
  return`, [][2]int{{3, 8}, {12, 17}}},
		{"not a logger", `
  aload 0
  invokevirtual com/acme/Svc.isEnabled ()Z
  ifeq L0
  return
L0:
  return`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := parseClass(t, loggerClass+"method public run ()V"+tt.body+"\nend\nend\n")
			assertRanges(t, tt.want, detect(t, LoggingDetector{}, c, "run"))
		})
	}
}
