package bytecode

// Access flags
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020
	AccSynchronized = 0x0020
	AccVolatile     = 0x0040
	AccBridge       = 0x0040
	AccTransient    = 0x0080
	AccVarargs      = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
)

// Class is a read-only view of one class file.
type Class struct {
	Access     int
	Name       string
	SuperName  string
	Interfaces []string
	// Annotations holds the type descriptors of the class annotations,
	// runtime visible and invisible alike.
	Annotations []string
	// Attributes holds the names of the class-level attributes.
	Attributes []string
	Fields     []*Field
	Methods    []*Method
	SourceFile string
}

// Field is a field declaration.
type Field struct {
	Access int
	Name   string
	Desc   string
}

// Method is a method declaration and its decoded body.
type Method struct {
	Access         int
	Name           string
	Desc           string
	Instructions   *List
	LocalVariables []*LocalVariable
	TryCatchBlocks []*TryCatchBlock
}

// LocalVariable is one LocalVariableTable entry, valid from Start to End.
type LocalVariable struct {
	Index int
	Name  string
	Desc  string
	Start *Label
	End   *Label
}

// TryCatchBlock is one exception table entry. Type is "" for finally
// handlers.
type TryCatchBlock struct {
	Start   *Label
	End     *Label
	Handler *Label
	Type    string
}

// Is reports whether all bits of flag are set.
func (f *Field) Is(flag int) bool { return f.Access&flag == flag }

// Is reports whether all bits of flag are set.
func (m *Method) Is(flag int) bool { return m.Access&flag == flag }

// Local returns the local variable named for slot at node n, or nil.
func (m *Method) Local(slot int, n Node) *LocalVariable {
	for _, lv := range m.LocalVariables {
		if lv.Index != slot {
			continue
		}
		if n == nil || lv.Start == nil || lv.End == nil {
			return lv
		}
		if n.Index() >= lv.Start.Index() && n.Index() <= lv.End.Index() {
			return lv
		}
	}
	return nil
}
