// Package listing reads classes written as text listings, close to the
// output of javap -c:
//
//	class public final com/acme/Foo extends java/lang/Object implements scala/Product
//	@Lscala/reflect/ScalaSignature;
//	attribute ScalaSig
//	source Foo.scala
//	field private final x I
//	method public x ()I
//	L0:
//	  line 3 L0
//	  aload 0
//	  getfield com/acme/Foo.x I
//	  ireturn
//	end
//	end
//
// Instructions use the canonical mnemonics: short forms such as aload_0
// are written aload 0.
package listing

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

var accessFlags = map[string]int{
	"public":       bytecode.AccPublic,
	"private":      bytecode.AccPrivate,
	"protected":    bytecode.AccProtected,
	"static":       bytecode.AccStatic,
	"final":        bytecode.AccFinal,
	"super":        bytecode.AccSuper,
	"synchronized": bytecode.AccSynchronized,
	"volatile":     bytecode.AccVolatile,
	"bridge":       bytecode.AccBridge,
	"transient":    bytecode.AccTransient,
	"varargs":      bytecode.AccVarargs,
	"native":       bytecode.AccNative,
	"interface":    bytecode.AccInterface,
	"abstract":     bytecode.AccAbstract,
	"strict":       bytecode.AccStrict,
	"synthetic":    bytecode.AccSynthetic,
	"annotation":   bytecode.AccAnnotation,
	"enum":         bytecode.AccEnum,
}

// ParseFile reads all classes of the listing at path.
func ParseFile(path string) ([]*bytecode.Class, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening listing: %w", err)
	}
	defer f.Close()
	return Parse(path, f)
}

// Parse reads all classes of a listing. filename is used in error
// positions only.
func Parse(filename string, r io.Reader) ([]*bytecode.Class, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading listing: %w", err)
	}
	return ParseString(filename, string(src))
}

// ParseString reads all classes of a listing held in src.
func ParseString(filename, src string) ([]*bytecode.Class, error) {
	f, err := grammar.ParseString(filename, src+"\n")
	if err != nil {
		return nil, err
	}
	b := &builder{}
	for _, l := range f.Lines {
		if err := b.handle(l); err != nil {
			return nil, err
		}
	}
	if b.method != nil {
		return nil, fmt.Errorf("%s: method %s not closed", b.methodPos, b.method.Name)
	}
	if b.class != nil {
		return nil, fmt.Errorf("%s: class %s not closed", b.classPos, b.class.Name)
	}
	return b.classes, nil
}

// ParseInstructions reads a bare instruction list, one instruction or
// marker per line, as found between "method" and "end". The result is a
// method named m with descriptor ()V.
func ParseInstructions(src string) (*bytecode.Method, error) {
	f, err := grammar.ParseString("", src+"\n")
	if err != nil {
		return nil, err
	}
	b := &builder{}
	m := &bytecode.Method{Name: "m", Desc: "()V"}
	b.startMethod(m, lexer.Position{})
	for _, l := range f.Lines {
		if b.method == nil {
			return nil, fmt.Errorf("%s: unexpected line after end", l.Pos)
		}
		if err := b.body(l); err != nil {
			return nil, err
		}
	}
	if b.method != nil {
		if err := b.endMethod(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

type builder struct {
	classes []*bytecode.Class

	class    *bytecode.Class
	classPos lexer.Position

	method    *bytecode.Method
	methodPos lexer.Position
	nodes     []bytecode.Node
	labels    map[string]*bytecode.Label
	defined   map[string]bool
	labelRefs map[string]lexer.Position
}

func (b *builder) handle(l *line) error {
	if b.method != nil {
		return b.body(l)
	}
	if l.Label != nil {
		return fmt.Errorf("%s: label %s outside a method", l.Pos, *l.Label)
	}
	ws := l.Words
	keyword := ws[0].text()
	if keyword != "class" && b.class == nil {
		return fmt.Errorf("%s: %q outside a class", l.Pos, keyword)
	}
	switch {
	case keyword == "class":
		return b.startClass(l)
	case strings.HasPrefix(keyword, "@"):
		if len(ws) != 1 {
			return fmt.Errorf("%s: unexpected tokens after annotation", l.Pos)
		}
		b.class.Annotations = append(b.class.Annotations, keyword[1:])
	case keyword == "attribute":
		if len(ws) != 2 {
			return fmt.Errorf("%s: attribute wants a name", l.Pos)
		}
		b.class.Attributes = append(b.class.Attributes, ws[1].text())
	case keyword == "source":
		if len(ws) != 2 {
			return fmt.Errorf("%s: source wants a file name", l.Pos)
		}
		b.class.SourceFile = ws[1].text()
	case keyword == "field":
		access, rest := flags(ws[1:])
		if len(rest) != 2 {
			return fmt.Errorf("%s: field wants a name and a descriptor", l.Pos)
		}
		b.class.Fields = append(b.class.Fields, &bytecode.Field{
			Access: access, Name: rest[0].text(), Desc: rest[1].text(),
		})
	case keyword == "method":
		access, rest := flags(ws[1:])
		if len(rest) != 2 {
			return fmt.Errorf("%s: method wants a name and a descriptor", l.Pos)
		}
		if _, err := bytecode.ArgumentTypes(rest[1].text()); err != nil {
			return fmt.Errorf("%s: %w", rest[1].Pos, err)
		}
		b.startMethod(&bytecode.Method{Access: access, Name: rest[0].text(), Desc: rest[1].text()}, l.Pos)
	case keyword == "end":
		b.classes = append(b.classes, b.class)
		b.class = nil
	default:
		return fmt.Errorf("%s: unexpected %q in class body", l.Pos, keyword)
	}
	return nil
}

func (b *builder) startClass(l *line) error {
	if b.class != nil {
		return fmt.Errorf("%s: class %s not closed", l.Pos, b.class.Name)
	}
	access, rest := flags(l.Words[1:])
	if len(rest) == 0 {
		return fmt.Errorf("%s: class wants a name", l.Pos)
	}
	c := &bytecode.Class{Access: access, Name: rest[0].text(), SuperName: "java/lang/Object"}
	rest = rest[1:]
	if len(rest) >= 2 && rest[0].text() == "extends" {
		c.SuperName = rest[1].text()
		rest = rest[2:]
	}
	if len(rest) > 0 {
		if rest[0].text() != "implements" || len(rest) == 1 {
			return fmt.Errorf("%s: unexpected %q in class header", rest[0].Pos, rest[0].text())
		}
		for _, w := range rest[1:] {
			c.Interfaces = append(c.Interfaces, w.text())
		}
	}
	b.class, b.classPos = c, l.Pos
	return nil
}

func (b *builder) startMethod(m *bytecode.Method, pos lexer.Position) {
	b.method, b.methodPos = m, pos
	b.nodes = nil
	b.labels = make(map[string]*bytecode.Label)
	b.defined = make(map[string]bool)
	b.labelRefs = make(map[string]lexer.Position)
}

func (b *builder) endMethod() error {
	for name, pos := range b.labelRefs {
		if !b.defined[name] {
			return fmt.Errorf("%s: undefined label %s", pos, name)
		}
	}
	b.method.Instructions = bytecode.NewList(b.nodes...)
	if b.class != nil {
		b.class.Methods = append(b.class.Methods, b.method)
	}
	b.method = nil
	return nil
}

func (b *builder) label(w *word) *bytecode.Label {
	name := w.text()
	if _, ok := b.labelRefs[name]; !ok {
		b.labelRefs[name] = w.Pos
	}
	l, ok := b.labels[name]
	if !ok {
		l = &bytecode.Label{Name: name}
		b.labels[name] = l
	}
	return l
}

func (b *builder) body(l *line) error {
	if l.Label != nil {
		name := *l.Label
		if b.defined[name] {
			return fmt.Errorf("%s: label %s defined twice", l.Pos, name)
		}
		b.defined[name] = true
		b.nodes = append(b.nodes, b.label(&word{Pos: l.Pos, Text: l.Label}))
		return nil
	}
	ws := l.Words
	keyword := ws[0].text()
	args := ws[1:]
	switch keyword {
	case "end":
		if len(args) != 0 {
			return fmt.Errorf("%s: unexpected tokens after end", l.Pos)
		}
		return b.endMethod()
	case "line":
		if len(args) != 2 {
			return fmt.Errorf("%s: line wants a number and a label", l.Pos)
		}
		n, err := integer(args[0])
		if err != nil {
			return err
		}
		b.nodes = append(b.nodes, &bytecode.LineNumber{Line: n, Start: b.label(args[1])})
		return nil
	case "frame":
		b.nodes = append(b.nodes, &bytecode.Frame{})
		return nil
	case "local":
		if len(args) != 5 {
			return fmt.Errorf("%s: local wants slot, name, descriptor, start and end", l.Pos)
		}
		slot, err := integer(args[0])
		if err != nil {
			return err
		}
		b.method.LocalVariables = append(b.method.LocalVariables, &bytecode.LocalVariable{
			Index: slot, Name: args[1].text(), Desc: args[2].text(),
			Start: b.label(args[3]), End: b.label(args[4]),
		})
		return nil
	case "try":
		if len(args) != 3 && len(args) != 4 {
			return fmt.Errorf("%s: try wants start, end, handler and an optional type", l.Pos)
		}
		tc := &bytecode.TryCatchBlock{Start: b.label(args[0]), End: b.label(args[1]), Handler: b.label(args[2])}
		if len(args) == 4 {
			tc.Type = args[3].text()
		}
		b.method.TryCatchBlocks = append(b.method.TryCatchBlocks, tc)
		return nil
	}
	n, err := b.instruction(ws[0], args)
	if err != nil {
		return err
	}
	b.nodes = append(b.nodes, n)
	return nil
}

func (b *builder) instruction(mnemonic *word, args []*word) (bytecode.Node, error) {
	op, ok := bytecode.Lookup(mnemonic.text())
	if !ok || bytecode.KindOf(op) == bytecode.KindInvalid {
		return nil, fmt.Errorf("%s: unknown instruction %q", mnemonic.Pos, mnemonic.text())
	}
	want := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s: %s wants %d operands, got %d", mnemonic.Pos, mnemonic.text(), n, len(args))
		}
		return nil
	}
	switch bytecode.KindOf(op) {
	case bytecode.KindInsn:
		if err := want(0); err != nil {
			return nil, err
		}
		return &bytecode.Insn{Op: op}, nil
	case bytecode.KindInt:
		if err := want(1); err != nil {
			return nil, err
		}
		v, err := integer(args[0])
		if err != nil {
			return nil, err
		}
		return &bytecode.IntInsn{Op: op, Operand: v}, nil
	case bytecode.KindVar:
		if err := want(1); err != nil {
			return nil, err
		}
		v, err := integer(args[0])
		if err != nil {
			return nil, err
		}
		return &bytecode.VarInsn{Op: op, Var: v}, nil
	case bytecode.KindType:
		if err := want(1); err != nil {
			return nil, err
		}
		return &bytecode.TypeInsn{Op: op, Desc: args[0].text()}, nil
	case bytecode.KindField:
		if err := want(2); err != nil {
			return nil, err
		}
		owner, name, err := member(args[0])
		if err != nil {
			return nil, err
		}
		return &bytecode.FieldInsn{Op: op, Owner: owner, Name: name, Desc: args[1].text()}, nil
	case bytecode.KindMethod:
		itf := len(args) == 3 && args[2].text() == "itf"
		if !itf {
			if err := want(2); err != nil {
				return nil, err
			}
		}
		owner, name, err := member(args[0])
		if err != nil {
			return nil, err
		}
		if _, err := bytecode.ArgumentTypes(args[1].text()); err != nil {
			return nil, fmt.Errorf("%s: %w", args[1].Pos, err)
		}
		return &bytecode.MethodInsn{Op: op, Owner: owner, Name: name, Desc: args[1].text(),
			Itf: itf || op == bytecode.OpInvokeinterface}, nil
	case bytecode.KindInvokeDynamic:
		if err := want(2); err != nil {
			return nil, err
		}
		return &bytecode.InvokeDynamicInsn{Name: args[0].text(), Desc: args[1].text()}, nil
	case bytecode.KindJump:
		if err := want(1); err != nil {
			return nil, err
		}
		return &bytecode.JumpInsn{Op: op, Label: b.label(args[0])}, nil
	case bytecode.KindLdc:
		if err := want(1); err != nil {
			return nil, err
		}
		c, err := constant(args[0])
		if err != nil {
			return nil, err
		}
		return &bytecode.LdcInsn{Cst: c}, nil
	case bytecode.KindIinc:
		if err := want(2); err != nil {
			return nil, err
		}
		slot, err := integer(args[0])
		if err != nil {
			return nil, err
		}
		incr, err := integer(args[1])
		if err != nil {
			return nil, err
		}
		return &bytecode.IincInsn{Var: slot, Incr: incr}, nil
	case bytecode.KindTableSwitch:
		if len(args) < 3 {
			return nil, fmt.Errorf("%s: tableswitch wants min, max and a default label", mnemonic.Pos)
		}
		lo, err := integer(args[0])
		if err != nil {
			return nil, err
		}
		hi, err := integer(args[1])
		if err != nil {
			return nil, err
		}
		if hi < lo || len(args)-3 != hi-lo+1 {
			return nil, fmt.Errorf("%s: tableswitch %d..%d wants %d labels", mnemonic.Pos, lo, hi, hi-lo+1)
		}
		sw := &bytecode.TableSwitchInsn{Min: lo, Max: hi, Dflt: b.label(args[2])}
		for _, w := range args[3:] {
			sw.Labels = append(sw.Labels, b.label(w))
		}
		return sw, nil
	case bytecode.KindLookupSwitch:
		if len(args)%2 != 1 {
			return nil, fmt.Errorf("%s: lookupswitch wants a default label and key/label pairs", mnemonic.Pos)
		}
		sw := &bytecode.LookupSwitchInsn{Dflt: b.label(args[0])}
		for i := 1; i < len(args); i += 2 {
			k, err := integer(args[i])
			if err != nil {
				return nil, err
			}
			sw.Keys = append(sw.Keys, k)
			sw.Labels = append(sw.Labels, b.label(args[i+1]))
		}
		return sw, nil
	case bytecode.KindMultiANewArray:
		if err := want(2); err != nil {
			return nil, err
		}
		dims, err := integer(args[1])
		if err != nil {
			return nil, err
		}
		return &bytecode.MultiANewArrayInsn{Desc: args[0].text(), Dims: dims}, nil
	}
	return nil, fmt.Errorf("%s: unknown instruction %q", mnemonic.Pos, mnemonic.text())
}

func (w *word) text() string {
	if w.Text != nil {
		return *w.Text
	}
	if w.String != nil {
		return *w.String
	}
	return ""
}

// flags splits leading access flag words off ws.
func flags(ws []*word) (int, []*word) {
	access := 0
	for len(ws) > 0 {
		f, ok := accessFlags[ws[0].text()]
		if !ok || ws[0].String != nil {
			break
		}
		access |= f
		ws = ws[1:]
	}
	return access, ws
}

func integer(w *word) (int, error) {
	v, err := strconv.Atoi(w.text())
	if err != nil || w.String != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", w.Pos, w.text())
	}
	return v, nil
}

// member splits Owner.name at the last dot.
func member(w *word) (string, string, error) {
	s := w.text()
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 || w.String != nil {
		return "", "", fmt.Errorf("%s: %q is not an Owner.name reference", w.Pos, s)
	}
	return s[:i], s[i+1:], nil
}

// constant parses an LDC operand: "string", 1, 1L, 1.5F, 1.5D, or a
// class or method type descriptor.
func constant(w *word) (any, error) {
	if w.String != nil {
		s, err := strconv.Unquote(*w.String)
		if err != nil {
			return nil, fmt.Errorf("%s: bad string literal: %w", w.Pos, err)
		}
		return s, nil
	}
	s := w.text()
	switch {
	case strings.HasPrefix(s, "L") && strings.HasSuffix(s, ";"), strings.HasPrefix(s, "["), strings.HasPrefix(s, "("):
		return bytecode.Type{Desc: s}, nil
	case strings.HasSuffix(s, "L"):
		v, err := strconv.ParseInt(strings.TrimSuffix(s, "L"), 10, 64)
		if err == nil {
			return v, nil
		}
	case strings.HasSuffix(s, "F"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "F"), 32)
		if err == nil {
			return float32(v), nil
		}
	case strings.HasSuffix(s, "D"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "D"), 64)
		if err == nil {
			return v, nil
		}
	default:
		v, err := strconv.ParseInt(s, 10, 32)
		if err == nil {
			return int32(v), nil
		}
	}
	return nil, fmt.Errorf("%s: bad constant %q", w.Pos, s)
}
