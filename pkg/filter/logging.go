package filter

import (
	"strings"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// LoggingDetector ignores blocks guarded by a logger level check, as
// emitted by logging macros:
//
//	invokeinterface org/slf4j/Logger.isDebugEnabled ()Z itf
//	ifeq L1
//	...                 // ignored up to L1
//	L1:
//
// When the block ends with a goto over an else branch, the range extends
// to the goto target.
type LoggingDetector struct{}

func (LoggingDetector) Name() string { return "logging" }

func (LoggingDetector) Detect(m *bytecode.Method, ctx Context, out Output) {
	check := Predicate(func(n bytecode.Node) bool {
		call, ok := n.(*bytecode.MethodInsn)
		return ok && (call.Op == bytecode.OpInvokeinterface || call.Op == bytecode.OpInvokevirtual) &&
			isLevelCheck(call)
	})
	n := m.Instructions.First()
	for {
		call := ForwardFrom(n, check)
		if call == nil {
			return
		}
		n = call.Next()
		branch, ok := NextOpcode(call).(*bytecode.JumpInsn)
		if !ok || branch.Op != bytecode.OpIfeq || branch.Label == nil {
			continue
		}
		to := branch.Label
		if g, ok := PrevOpcode(to).(*bytecode.JumpInsn); ok && g.Op == bytecode.OpGoto && g.Label != nil {
			to = g.Label
		}
		if to.Index() <= branch.Index() {
			continue
		}
		out.Ignore(branch, to)
		n = to
	}
}

func isLevelCheck(call *bytecode.MethodInsn) bool {
	if !strings.HasSuffix(call.Owner, "Logger") || !strings.HasSuffix(call.Desc, "Z") ||
		!strings.HasPrefix(call.Name, "is") {
		return false
	}
	return strings.HasSuffix(call.Name, "Enabled") ||
		strings.HasSuffix(call.Name, "Loggable") ||
		strings.HasSuffix(call.Name, "EnabledFor")
}
