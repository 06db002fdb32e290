// Package report holds the result of a run: per class and method, the
// instruction ranges the detectors ignored. Ranges are inclusive node
// indices into the method's instruction list.
package report

import (
	"github.com/daimatz/scalafilter/pkg/bytecode"
	"github.com/daimatz/scalafilter/pkg/filter"
)

type Report struct {
	Classes []Class `yaml:"classes" cbor:"classes"`
}

type Class struct {
	Name    string   `yaml:"name" cbor:"name"`
	Source  string   `yaml:"source,omitempty" cbor:"source,omitempty"`
	Scala   bool     `yaml:"scala" cbor:"scala"`
	Methods []Method `yaml:"methods,omitempty" cbor:"methods,omitempty"`
	// Error is set when the class could not be read.
	Error string `yaml:"error,omitempty" cbor:"error,omitempty"`
}

type Method struct {
	Name string `yaml:"name" cbor:"name"`
	Desc string `yaml:"desc" cbor:"desc"`
	// Instructions counts the opcodes of the method, markers excluded.
	Instructions int     `yaml:"instructions" cbor:"instructions"`
	Ranges       []Range `yaml:"ranges,omitempty" cbor:"ranges,omitempty"`
	// Ignored counts the opcodes covered by at least one range.
	Ignored int `yaml:"ignored" cbor:"ignored"`
}

type Range struct {
	Detector string `yaml:"detector" cbor:"detector"`
	From     int    `yaml:"from" cbor:"from"`
	To       int    `yaml:"to" cbor:"to"`
	FromLine int    `yaml:"from_line,omitempty" cbor:"from_line,omitempty"`
	ToLine   int    `yaml:"to_line,omitempty" cbor:"to_line,omitempty"`
}

// Filtered reports whether any range was found in the method.
func (m *Method) Filtered() bool { return len(m.Ranges) > 0 }

// Filtered reports whether any method of the class has a range.
func (c *Class) Filtered() bool {
	for i := range c.Methods {
		if c.Methods[i].Filtered() {
			return true
		}
	}
	return false
}

// NewClass describes class with the ranges collected per method.
// Methods without a collector are listed with no ranges.
func NewClass(class *bytecode.Class, results map[*bytecode.Method]*filter.Collector) Class {
	c := Class{
		Name:   class.Name,
		Source: class.SourceFile,
		Scala:  results != nil,
	}
	for _, m := range class.Methods {
		if m.Instructions.Len() == 0 {
			continue
		}
		c.Methods = append(c.Methods, NewMethod(m, results[m]))
	}
	return c
}

// NewMethod describes m with the ranges held by out, which may be nil.
func NewMethod(m *bytecode.Method, out *filter.Collector) Method {
	rm := Method{
		Name:         m.Name,
		Desc:         m.Desc,
		Instructions: m.Instructions.Opcodes(),
	}
	if out == nil {
		return rm
	}
	for _, r := range out.Ranges() {
		rm.Ranges = append(rm.Ranges, Range{
			Detector: r.Detector,
			From:     r.From.Index(),
			To:       r.To.Index(),
			FromLine: lineOf(r.From),
			ToLine:   lineOf(r.To),
		})
	}
	for _, span := range out.Merged() {
		for i := span[0]; i <= span[1] && i < m.Instructions.Len(); i++ {
			if m.Instructions.Get(i).Opcode() >= 0 {
				rm.Ignored++
			}
		}
	}
	return rm
}

// lineOf returns the source line n belongs to, or 0 without line numbers.
// A marker belongs to the instruction following it.
func lineOf(n bytecode.Node) int {
	if op := filter.SkipNonOpcodes(n); op != nil {
		n = op
	}
	if ln, ok := filter.BackwardFrom(n, filter.Lines).(*bytecode.LineNumber); ok {
		return ln.Line
	}
	return 0
}

// Summary totals a report.
type Summary struct {
	Classes      int
	ScalaClasses int
	Errors       int
	Methods      int
	Filtered     int
	Instructions int
	Ignored      int
}

func (r *Report) Summary() Summary {
	var s Summary
	for _, c := range r.Classes {
		s.Classes++
		if c.Scala {
			s.ScalaClasses++
		}
		if c.Error != "" {
			s.Errors++
		}
		for _, m := range c.Methods {
			s.Methods++
			if m.Filtered() {
				s.Filtered++
			}
			s.Instructions += m.Instructions
			s.Ignored += m.Ignored
		}
	}
	return s
}

// OnlyFiltered returns a copy of r keeping the classes and methods with
// at least one range, and the classes that failed.
func (r *Report) OnlyFiltered() *Report {
	out := &Report{}
	for _, c := range r.Classes {
		if c.Error != "" {
			out.Classes = append(out.Classes, c)
			continue
		}
		kept := c
		kept.Methods = nil
		for _, m := range c.Methods {
			if m.Filtered() {
				kept.Methods = append(kept.Methods, m)
			}
		}
		if len(kept.Methods) > 0 {
			out.Classes = append(out.Classes, kept)
		}
	}
	return out
}
