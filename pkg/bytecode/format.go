package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders a node in the listing syntax understood by the listing
// package, e.g. "getfield Foo.x I" or "L3:".
func Format(n Node) string {
	switch n := n.(type) {
	case nil:
		return "<nil>"
	case *Label:
		return labelName(n) + ":"
	case *LineNumber:
		return fmt.Sprintf("line %d %s", n.Line, labelName(n.Start))
	case *Frame:
		return "frame"
	case *Insn:
		return Name(n.Op)
	case *IntInsn:
		return fmt.Sprintf("%s %d", Name(n.Op), n.Operand)
	case *VarInsn:
		return fmt.Sprintf("%s %d", Name(n.Op), n.Var)
	case *TypeInsn:
		return Name(n.Op) + " " + n.Desc
	case *FieldInsn:
		return fmt.Sprintf("%s %s.%s %s", Name(n.Op), n.Owner, n.Name, n.Desc)
	case *MethodInsn:
		s := fmt.Sprintf("%s %s.%s %s", Name(n.Op), n.Owner, n.Name, n.Desc)
		if n.Itf {
			s += " itf"
		}
		return s
	case *InvokeDynamicInsn:
		return fmt.Sprintf("invokedynamic %s %s", n.Name, n.Desc)
	case *JumpInsn:
		return Name(n.Op) + " " + labelName(n.Label)
	case *LdcInsn:
		return "ldc " + formatConstant(n.Cst)
	case *IincInsn:
		return fmt.Sprintf("iinc %d %d", n.Var, n.Incr)
	case *TableSwitchInsn:
		parts := []string{"tableswitch", strconv.Itoa(n.Min), strconv.Itoa(n.Max), labelName(n.Dflt)}
		for _, l := range n.Labels {
			parts = append(parts, labelName(l))
		}
		return strings.Join(parts, " ")
	case *LookupSwitchInsn:
		parts := []string{"lookupswitch", labelName(n.Dflt)}
		for i, k := range n.Keys {
			parts = append(parts, strconv.Itoa(k), labelName(n.Labels[i]))
		}
		return strings.Join(parts, " ")
	case *MultiANewArrayInsn:
		return fmt.Sprintf("multianewarray %s %d", n.Desc, n.Dims)
	}
	return fmt.Sprintf("<%T>", n)
}

func labelName(l *Label) string {
	if l == nil {
		return "<nil>"
	}
	if l.Name != "" {
		return l.Name
	}
	return "L@" + strconv.Itoa(l.Index())
}

func formatConstant(c any) string {
	switch c := c.(type) {
	case string:
		return strconv.Quote(c)
	case int32:
		return strconv.FormatInt(int64(c), 10)
	case int64:
		return strconv.FormatInt(c, 10) + "L"
	case float32:
		return strconv.FormatFloat(float64(c), 'f', -1, 32) + "F"
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64) + "D"
	case Type:
		return c.Desc
	}
	return fmt.Sprint(c)
}
