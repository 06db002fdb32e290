package filter

import (
	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// Context is the read-only view of the class owning the method being
// filtered.
type Context interface {
	ClassName() string
	SuperClassName() string
	ClassInterfaces() []string
	ClassAnnotations() []string
	ClassAttributes() []string
	ClassFields() []*bytecode.Field
	ClassMethods() []*bytecode.Method
	SourceFileName() string
}

type classContext struct {
	class *bytecode.Class
	lines lineIndex
}

// NewContext returns a Context backed by class.
func NewContext(class *bytecode.Class) Context {
	return &classContext{class: class}
}

func (c *classContext) ClassName() string                { return c.class.Name }
func (c *classContext) SuperClassName() string           { return c.class.SuperName }
func (c *classContext) ClassInterfaces() []string        { return c.class.Interfaces }
func (c *classContext) ClassAnnotations() []string       { return c.class.Annotations }
func (c *classContext) ClassAttributes() []string        { return c.class.Attributes }
func (c *classContext) ClassFields() []*bytecode.Field   { return c.class.Fields }
func (c *classContext) ClassMethods() []*bytecode.Method { return c.class.Methods }
func (c *classContext) SourceFileName() string           { return c.class.SourceFile }

// lineIndex is built on first use. A context serves one goroutine.
func (c *classContext) lineIndex() lineIndex {
	if c.lines == nil {
		c.lines = buildLineIndex(c.class.Methods)
	}
	return c.lines
}
