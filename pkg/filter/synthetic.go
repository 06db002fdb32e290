package filter

import (
	"strings"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// SyntheticDetector ignores one-line case class and companion members.
// It complements CaseClassDetector for members emitted on their own line.
type SyntheticDetector struct {
	// Bridges also ignores one-line bridge methods.
	Bridges bool
}

func (*SyntheticDetector) Name() string { return "synthetic" }

func (d *SyntheticDetector) Detect(m *bytecode.Method, ctx Context, out Output) {
	if !IsOneLiner(m) {
		return
	}
	switch {
	case CaseInstanceMembers[m.Name], strings.HasPrefix(m.Name, CopyDefaultName):
	case IsObjectClass(ctx) && (CompanionMembers[m.Name] || ValueClassExtensions[m.Name]):
	case d.Bridges && m.Is(bytecode.AccBridge):
	default:
		return
	}
	ignoreAll(m, out)
}
