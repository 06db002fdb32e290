package filter

import (
	"slices"
	"strings"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// Compiler signature markers. Any one of them makes a class eligible.
const (
	ScalaSignatureAnnotation     = "Lscala/reflect/ScalaSignature;"
	ScalaLongSignatureAnnotation = "Lscala/reflect/ScalaLongSignature;"
	ScalaSigAttribute            = "ScalaSig"
	ScalaAttribute               = "Scala"
)

// Names and affixes of scalac 2.10 through 2.13 output.
const (
	InitName   = "<init>"
	ClinitName = "<clinit>"
	NoArgsDesc = "()V"

	LazySuffix      = "$lzycompute"
	ExtensionSuffix = "$extension"
	SetterSuffix    = "_$eq"
	TraitImplSuffix = "$class"
	TraitInitName   = "$init$"
	BitmapPrefix    = "bitmap$"
	CopyDefaultName = "copy$default"

	OuterField  = "$outer"
	ModuleField = "MODULE$"

	ReadResolveName = "readResolve"
	ReadResolveDesc = "()Ljava/lang/Object;"

	ModuleSerializationProxy = "scala/runtime/ModuleSerializationProxy"

	LazyRefDesc           = "Lscala/runtime/LazyRef;"
	VolatileObjectRefDesc = "Lscala/runtime/VolatileObjectRef;"
)

// ProductMembers are the members scalac synthesizes for case classes and
// their companions.
var ProductMembers = set(
	// companion
	"apply", "unapply", "unapplySeq",
	// scala.Product
	"productArity", "productElement", "productPrefix", "productIterator", "canEqual",
	"copy",
	// java.lang.Object
	"equals", "hashCode", "toString",
	// serializable singletons
	ReadResolveName,
)

// CaseInstanceMembers are the one-liner instance members of a case class.
var CaseInstanceMembers = set(
	"canEqual", "copy", "equals", "hashCode",
	"productPrefix", "productArity", "productElement", "productIterator",
	"toString",
)

// CompanionMembers are the one-liner members of a case class companion.
var CompanionMembers = set("apply", "unapply", "unapplySeq", ReadResolveName)

// ValueClassExtensions are the members of a value class that scalac moves
// to the companion as name$extension.
var ValueClassExtensions = set(
	"equals$extension", "hashCode$extension", "toString$extension",
	"canEqual$extension", "copy$extension", "productArity$extension",
	"productElement$extension", "productIterator$extension", "productPrefix$extension",
)

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// IsScalaClass reports whether the class carries a scalac signature.
func IsScalaClass(ctx Context) bool {
	annotations := ctx.ClassAnnotations()
	attributes := ctx.ClassAttributes()
	return slices.Contains(annotations, ScalaSignatureAnnotation) ||
		slices.Contains(annotations, ScalaLongSignatureAnnotation) ||
		slices.Contains(attributes, ScalaSigAttribute) ||
		slices.Contains(attributes, ScalaAttribute)
}

// Applicable reports whether detectors should look at m at all.
func Applicable(m *bytecode.Method, ctx Context) bool {
	return m != nil && m.Instructions.Len() != 0 && IsScalaClass(ctx)
}

// IsModuleClass reports whether the class is a singleton object: its name
// ends with $ and it declares static final MODULE$ of its own type.
func IsModuleClass(ctx Context) bool {
	name := ctx.ClassName()
	if !strings.HasSuffix(name, "$") {
		return false
	}
	for _, f := range FindFields(ctx, ModuleField, bytecode.ObjectDesc(name)) {
		if f.Is(bytecode.AccStatic | bytecode.AccFinal) {
			return true
		}
	}
	return false
}

// HasOuterField reports whether the class is an inner class holding its
// enclosing instance.
func HasOuterField(ctx Context) bool {
	return FindField(ctx, OuterField, "") != nil
}

// IsObjectClass reports whether the class implements a Scala object:
// a top-level module class, or an object nested in a class, which is
// named Outer$Inner$ and keeps $outer instead of a static MODULE$.
func IsObjectClass(ctx Context) bool {
	return IsModuleClass(ctx) || (strings.HasSuffix(ctx.ClassName(), "$") && HasOuterField(ctx))
}

// FindFields returns the fields matching name and desc. An empty selector
// matches anything, but at least one must be set.
func FindFields(ctx Context, name, desc string) []*bytecode.Field {
	if name == "" && desc == "" {
		panic("filter: FindFields needs a name or a descriptor")
	}
	var fields []*bytecode.Field
	for _, f := range ctx.ClassFields() {
		if (name == "" || f.Name == name) && (desc == "" || f.Desc == desc) {
			fields = append(fields, f)
		}
	}
	return fields
}

// FindField returns the first field matching name and desc, or nil.
func FindField(ctx Context, name, desc string) *bytecode.Field {
	if fields := FindFields(ctx, name, desc); len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// FindMethods returns the methods matching name and desc. An empty
// selector matches anything, but at least one must be set.
func FindMethods(ctx Context, name, desc string) []*bytecode.Method {
	if name == "" && desc == "" {
		panic("filter: FindMethods needs a name or a descriptor")
	}
	var methods []*bytecode.Method
	for _, m := range ctx.ClassMethods() {
		if (name == "" || m.Name == name) && (desc == "" || m.Desc == desc) {
			methods = append(methods, m)
		}
	}
	return methods
}

// FindMethod returns the first method matching name and desc, or nil.
func FindMethod(ctx Context, name, desc string) *bytecode.Method {
	if methods := FindMethods(ctx, name, desc); len(methods) > 0 {
		return methods[0]
	}
	return nil
}

// FirstLine returns the first line number marker of m, or nil.
func FirstLine(m *bytecode.Method) *bytecode.LineNumber {
	if m == nil {
		return nil
	}
	n, _ := ForwardFrom(m.Instructions.First(), Lines).(*bytecode.LineNumber)
	return n
}

// LastLine returns the last line number marker of m, or nil.
func LastLine(m *bytecode.Method) *bytecode.LineNumber {
	if m == nil {
		return nil
	}
	n, _ := BackwardFrom(m.Instructions.Last(), Lines).(*bytecode.LineNumber)
	return n
}

// HasLines reports whether m has any line number marker.
func HasLines(m *bytecode.Method) bool {
	return FirstLine(m) != nil
}

// IsOneLiner reports whether the first and last line markers of m name the
// same source line.
func IsOneLiner(m *bytecode.Method) bool {
	first, last := FirstLine(m), LastLine(m)
	return first != nil && last != nil && first.Line == last.Line
}

// IsOnInitLine reports whether m starts on the first line of one of the
// class constructors.
func IsOnInitLine(m *bytecode.Method, ctx Context) bool {
	line := FirstLine(m)
	if line == nil {
		return false
	}
	for _, init := range FindMethods(ctx, InitName, "") {
		if l := FirstLine(init); l != nil && l.Line == line.Line {
			return true
		}
	}
	return false
}

// SameLineSiblingCount returns, over the lines of m, the largest number
// of other methods of the class that also have a marker on that line.
func SameLineSiblingCount(m *bytecode.Method, ctx Context) int {
	byLine := lineIndexOf(ctx)
	count := 0
	for _, n := range m.Instructions.Nodes() {
		ln, ok := n.(*bytecode.LineNumber)
		if !ok {
			continue
		}
		methods := byLine[ln.Line]
		others := len(methods)
		if methods[m] {
			others--
		}
		count = max(count, others)
	}
	return count
}

// lineIndex maps a source line to the methods having a marker on it.
type lineIndex map[int]map[*bytecode.Method]bool

// lineIndexer is implemented by contexts that keep the index of their
// class.
type lineIndexer interface {
	lineIndex() lineIndex
}

func lineIndexOf(ctx Context) lineIndex {
	if li, ok := ctx.(lineIndexer); ok {
		return li.lineIndex()
	}
	return buildLineIndex(ctx.ClassMethods())
}

func buildLineIndex(methods []*bytecode.Method) lineIndex {
	byLine := make(lineIndex)
	for _, m := range methods {
		for _, n := range m.Instructions.Nodes() {
			ln, ok := n.(*bytecode.LineNumber)
			if !ok {
				continue
			}
			if byLine[ln.Line] == nil {
				byLine[ln.Line] = make(map[*bytecode.Method]bool)
			}
			byLine[ln.Line][m] = true
		}
	}
	return byLine
}

// ModuleDesc returns the descriptor of the companion module of class.
func ModuleDesc(class string) string {
	return bytecode.ObjectDesc(class + "$")
}
