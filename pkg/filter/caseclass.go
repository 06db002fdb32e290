package filter

import (
	"strings"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// CaseClassDetector ignores the members scalac adds to case classes and
// their companions (copy, equals, hashCode, apply, unapply, ...). Nothing
// is matched on instruction level: a candidate is recognized by its name
// and by sitting on the constructor line, or on a line shared with other
// methods.
//
// Value class extensions of those members (equals$extension, ...) are
// ignored wherever they are.
//
// Classes compiled without line numbers (scalac -g:none) are left alone.
type CaseClassDetector struct{}

func (CaseClassDetector) Name() string { return "case-class" }

func (CaseClassDetector) Detect(m *bytecode.Method, ctx Context, out Output) {
	if m.Name == InitName {
		return
	}
	if base, ok := strings.CutSuffix(m.Name, ExtensionSuffix); ok {
		if ProductMembers[base] {
			ignoreAll(m, out)
		}
		return
	}
	if !ProductMembers[m.Name] {
		return
	}
	if IsOnInitLine(m, ctx) || SameLineSiblingCount(m, ctx) > 0 {
		ignoreAll(m, out)
	}
}
