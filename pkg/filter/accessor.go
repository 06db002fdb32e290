package filter

import (
	"strings"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// AccessorDetector ignores getters and setters of private fields:
//
//	aload 0; getfield Cls.x T; xreturn            // x()T
//	aload 0; xload 1; putfield Cls.x T; return    // x_$eq(T)V
type AccessorDetector struct {
	// MaxNodes rejects methods of MaxNodes nodes or more, markers
	// included; zero means no bound.
	MaxNodes int
}

func (*AccessorDetector) Name() string { return "accessor" }

func (d *AccessorDetector) Detect(m *bytecode.Method, ctx Context, out Output) {
	if d.MaxNodes > 0 && m.Instructions.Len() >= d.MaxNodes {
		return
	}
	if strings.HasSuffix(m.Name, SetterSuffix) {
		if matchSetter(m, ctx) {
			ignoreAll(m, out)
		}
		return
	}
	if matchGetter(m, ctx) {
		ignoreAll(m, out)
	}
}

func matchGetter(m *bytecode.Method, ctx Context) bool {
	mt := NewMatcher(nil)
	mt.FirstIsALoad0(m.Instructions)
	f := NextIsTyped(mt, bytecode.OpGetfield, func(f *bytecode.FieldInsn) bool {
		return f.Owner == ctx.ClassName() && f.Name == m.Name && m.Desc == bytecode.MethodDesc(f.Desc)
	})
	if f == nil {
		return false
	}
	mt.NextIs(bytecode.ReturnOpcode(f.Desc))
	return !mt.Failed()
}

func matchSetter(m *bytecode.Method, ctx Context) bool {
	field := strings.TrimSuffix(m.Name, SetterSuffix)
	args, err := bytecode.ArgumentTypes(m.Desc)
	if err != nil || len(args) != 1 || bytecode.ReturnType(m.Desc) != "V" {
		return false
	}
	mt := NewMatcher(nil)
	mt.FirstIsALoad0(m.Instructions)
	mt.NextIsVar(bytecode.LoadOpcode(args[0]), "value")
	if v := mt.Var("value"); v != nil && v.Var != 1 {
		return false
	}
	mt.NextIsField(bytecode.OpPutfield, ctx.ClassName(), field, args[0])
	mt.NextIs(bytecode.OpReturn)
	return !mt.Failed()
}
