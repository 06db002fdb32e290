package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// Constant pool tags
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// parseConstantPool reads constant_pool_count-1 entries from the reader.
// The returned slice is 1-indexed: index 0 is nil.
func parseConstantPool(r io.Reader, count uint16) ([]ConstantPoolEntry, error) {
	pool := make([]ConstantPoolEntry, count)
	// pool[0] is unused (constant pool is 1-indexed)

	for i := uint16(1); i < count; i++ {
		var tag uint8
		if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
			return nil, fmt.Errorf("reading constant pool tag at index %d: %w", i, err)
		}

		switch tag {
		case TagUtf8:
			var length uint16
			if err := binary.Read(r, binary.BigEndian, &length); err != nil {
				return nil, fmt.Errorf("reading Utf8 length at index %d: %w", i, err)
			}
			bytes := make([]byte, length)
			if _, err := io.ReadFull(r, bytes); err != nil {
				return nil, fmt.Errorf("reading Utf8 bytes at index %d: %w", i, err)
			}
			pool[i] = &ConstantUtf8{Value: string(bytes)}

		case TagInteger:
			var val int32
			if err := binary.Read(r, binary.BigEndian, &val); err != nil {
				return nil, fmt.Errorf("reading Integer at index %d: %w", i, err)
			}
			pool[i] = &ConstantInteger{Value: val}

		case TagFloat:
			var bits uint32
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, fmt.Errorf("reading Float at index %d: %w", i, err)
			}
			pool[i] = &ConstantFloat{Value: math.Float32frombits(bits)}

		case TagLong:
			var val int64
			if err := binary.Read(r, binary.BigEndian, &val); err != nil {
				return nil, fmt.Errorf("reading Long at index %d: %w", i, err)
			}
			pool[i] = &ConstantLong{Value: val}
			i++ // long takes 2 slots

		case TagDouble:
			var bits uint64
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, fmt.Errorf("reading Double at index %d: %w", i, err)
			}
			pool[i] = &ConstantDouble{Value: math.Float64frombits(bits)}
			i++ // double takes 2 slots

		case TagClass:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, fmt.Errorf("reading Class at index %d: %w", i, err)
			}
			pool[i] = &ConstantClass{NameIndex: nameIndex}

		case TagString:
			var stringIndex uint16
			if err := binary.Read(r, binary.BigEndian, &stringIndex); err != nil {
				return nil, fmt.Errorf("reading String at index %d: %w", i, err)
			}
			pool[i] = &ConstantString{StringIndex: stringIndex}

		case TagFieldref:
			var classIndex, natIndex uint16
			if err := binary.Read(r, binary.BigEndian, &classIndex); err != nil {
				return nil, fmt.Errorf("reading Fieldref class_index at index %d: %w", i, err)
			}
			if err := binary.Read(r, binary.BigEndian, &natIndex); err != nil {
				return nil, fmt.Errorf("reading Fieldref name_and_type_index at index %d: %w", i, err)
			}
			pool[i] = &ConstantFieldref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagMethodref:
			var classIndex, natIndex uint16
			if err := binary.Read(r, binary.BigEndian, &classIndex); err != nil {
				return nil, fmt.Errorf("reading Methodref class_index at index %d: %w", i, err)
			}
			if err := binary.Read(r, binary.BigEndian, &natIndex); err != nil {
				return nil, fmt.Errorf("reading Methodref name_and_type_index at index %d: %w", i, err)
			}
			pool[i] = &ConstantMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagInterfaceMethodref:
			var classIndex, natIndex uint16
			if err := binary.Read(r, binary.BigEndian, &classIndex); err != nil {
				return nil, fmt.Errorf("reading InterfaceMethodref class_index at index %d: %w", i, err)
			}
			if err := binary.Read(r, binary.BigEndian, &natIndex); err != nil {
				return nil, fmt.Errorf("reading InterfaceMethodref name_and_type_index at index %d: %w", i, err)
			}
			pool[i] = &ConstantInterfaceMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagNameAndType:
			var nameIndex, descIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, fmt.Errorf("reading NameAndType name_index at index %d: %w", i, err)
			}
			if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
				return nil, fmt.Errorf("reading NameAndType descriptor_index at index %d: %w", i, err)
			}
			pool[i] = &ConstantNameAndType{NameIndex: nameIndex, DescriptorIndex: descIndex}

		case TagMethodHandle:
			var kind uint8
			var refIndex uint16
			if err := binary.Read(r, binary.BigEndian, &kind); err != nil {
				return nil, fmt.Errorf("reading MethodHandle reference_kind at index %d: %w", i, err)
			}
			if err := binary.Read(r, binary.BigEndian, &refIndex); err != nil {
				return nil, fmt.Errorf("reading MethodHandle reference_index at index %d: %w", i, err)
			}
			pool[i] = &ConstantMethodHandle{ReferenceKind: kind, ReferenceIndex: refIndex}

		case TagMethodType:
			var descIndex uint16
			if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
				return nil, fmt.Errorf("reading MethodType at index %d: %w", i, err)
			}
			pool[i] = &ConstantMethodType{DescriptorIndex: descIndex}

		case TagDynamic, TagInvokeDynamic:
			var bsmIndex, natIndex uint16
			if err := binary.Read(r, binary.BigEndian, &bsmIndex); err != nil {
				return nil, fmt.Errorf("reading Dynamic bootstrap_method_attr_index at index %d: %w", i, err)
			}
			if err := binary.Read(r, binary.BigEndian, &natIndex); err != nil {
				return nil, fmt.Errorf("reading Dynamic name_and_type_index at index %d: %w", i, err)
			}
			pool[i] = &ConstantDynamic{tag: tag, BootstrapMethodAttrIndex: bsmIndex, NameAndTypeIndex: natIndex}

		case TagModule, TagPackage:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, fmt.Errorf("reading Module/Package at index %d: %w", i, err)
			}
			pool[i] = &ConstantModule{tag: tag, NameIndex: nameIndex}

		default:
			return nil, fmt.Errorf("unknown constant pool tag %d at index %d", tag, i)
		}
	}

	return pool, nil
}

// GetUtf8 returns the Utf8 string at the given constant pool index.
func GetUtf8(pool []ConstantPoolEntry, index uint16) (string, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return "", fmt.Errorf("invalid constant pool index %d", index)
	}
	utf8, ok := pool[index].(*ConstantUtf8)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Utf8 (tag=%d)", index, pool[index].Tag())
	}
	return utf8.Value, nil
}

// GetClassName returns the class name referenced by a CONSTANT_Class entry.
func GetClassName(pool []ConstantPoolEntry, classIndex uint16) (string, error) {
	if int(classIndex) >= len(pool) || pool[classIndex] == nil {
		return "", fmt.Errorf("invalid constant pool index %d", classIndex)
	}
	class, ok := pool[classIndex].(*ConstantClass)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Class", classIndex)
	}
	return GetUtf8(pool, class.NameIndex)
}

// MethodRefInfo holds resolved method reference info.
type MethodRefInfo struct {
	ClassName  string
	MethodName string
	Descriptor string
	Interface  bool
}

// FieldRefInfo holds resolved field reference info.
type FieldRefInfo struct {
	ClassName  string
	FieldName  string
	Descriptor string
}

// ResolveMethodref resolves a CONSTANT_Methodref entry.
func ResolveMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	mref, err := entry[*ConstantMethodref](pool, index, "Methodref")
	if err != nil {
		return nil, err
	}
	owner, name, desc, err := resolveMember(pool, mref.ClassIndex, mref.NameAndTypeIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving Methodref: %w", err)
	}
	return &MethodRefInfo{ClassName: owner, MethodName: name, Descriptor: desc}, nil
}

// ResolveInterfaceMethodref resolves a CONSTANT_InterfaceMethodref entry.
func ResolveInterfaceMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	mref, err := entry[*ConstantInterfaceMethodref](pool, index, "InterfaceMethodref")
	if err != nil {
		return nil, err
	}
	owner, name, desc, err := resolveMember(pool, mref.ClassIndex, mref.NameAndTypeIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving InterfaceMethodref: %w", err)
	}
	return &MethodRefInfo{ClassName: owner, MethodName: name, Descriptor: desc, Interface: true}, nil
}

// ResolveAnyMethodref resolves either kind of method reference, as
// invokestatic and invokespecial may name interface methods.
func ResolveAnyMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	if int(index) < len(pool) {
		if _, ok := pool[index].(*ConstantInterfaceMethodref); ok {
			return ResolveInterfaceMethodref(pool, index)
		}
	}
	return ResolveMethodref(pool, index)
}

// ResolveFieldref resolves a CONSTANT_Fieldref entry.
func ResolveFieldref(pool []ConstantPoolEntry, index uint16) (*FieldRefInfo, error) {
	fref, err := entry[*ConstantFieldref](pool, index, "Fieldref")
	if err != nil {
		return nil, err
	}
	owner, name, desc, err := resolveMember(pool, fref.ClassIndex, fref.NameAndTypeIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving Fieldref: %w", err)
	}
	return &FieldRefInfo{ClassName: owner, FieldName: name, Descriptor: desc}, nil
}

// ResolveNameAndType returns the name and descriptor of a
// CONSTANT_NameAndType entry.
func ResolveNameAndType(pool []ConstantPoolEntry, index uint16) (string, string, error) {
	nat, err := entry[*ConstantNameAndType](pool, index, "NameAndType")
	if err != nil {
		return "", "", err
	}
	name, err := GetUtf8(pool, nat.NameIndex)
	if err != nil {
		return "", "", fmt.Errorf("resolving name: %w", err)
	}
	desc, err := GetUtf8(pool, nat.DescriptorIndex)
	if err != nil {
		return "", "", fmt.Errorf("resolving descriptor: %w", err)
	}
	return name, desc, nil
}

// ResolveInvokeDynamic returns the name and descriptor of a
// CONSTANT_InvokeDynamic entry.
func ResolveInvokeDynamic(pool []ConstantPoolEntry, index uint16) (string, string, error) {
	dyn, err := entry[*ConstantDynamic](pool, index, "InvokeDynamic")
	if err != nil {
		return "", "", err
	}
	return ResolveNameAndType(pool, dyn.NameAndTypeIndex)
}

// ResolveLoadable resolves the operand of ldc, ldc_w and ldc2_w. Class and
// MethodType constants resolve to bytecode.Type values; method handles and
// dynamic constants to a descriptive string.
func ResolveLoadable(pool []ConstantPoolEntry, index uint16) (any, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, fmt.Errorf("invalid constant pool index %d", index)
	}
	switch c := pool[index].(type) {
	case *ConstantInteger:
		return c.Value, nil
	case *ConstantFloat:
		return c.Value, nil
	case *ConstantLong:
		return c.Value, nil
	case *ConstantDouble:
		return c.Value, nil
	case *ConstantString:
		return GetUtf8(pool, c.StringIndex)
	case *ConstantClass:
		name, err := GetUtf8(pool, c.NameIndex)
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(name, "[") {
			name = bytecode.ObjectDesc(name)
		}
		return bytecode.Type{Desc: name}, nil
	case *ConstantMethodType:
		desc, err := GetUtf8(pool, c.DescriptorIndex)
		if err != nil {
			return nil, err
		}
		return bytecode.Type{Desc: desc}, nil
	case *ConstantMethodHandle:
		return fmt.Sprintf("handle:%d:#%d", c.ReferenceKind, c.ReferenceIndex), nil
	case *ConstantDynamic:
		name, desc, err := ResolveNameAndType(pool, c.NameAndTypeIndex)
		if err != nil {
			return nil, err
		}
		return "dynamic:" + name + ":" + desc, nil
	}
	return nil, fmt.Errorf("constant pool index %d is not loadable (tag=%d)", index, pool[index].Tag())
}

func resolveMember(pool []ConstantPoolEntry, classIndex, natIndex uint16) (string, string, string, error) {
	owner, err := GetClassName(pool, classIndex)
	if err != nil {
		return "", "", "", fmt.Errorf("class: %w", err)
	}
	name, desc, err := ResolveNameAndType(pool, natIndex)
	if err != nil {
		return "", "", "", err
	}
	return owner, name, desc, nil
}

func entry[T ConstantPoolEntry](pool []ConstantPoolEntry, index uint16, kind string) (T, error) {
	var zero T
	if int(index) >= len(pool) || pool[index] == nil {
		return zero, fmt.Errorf("invalid constant pool index %d", index)
	}
	e, ok := pool[index].(T)
	if !ok {
		return zero, fmt.Errorf("constant pool index %d is not %s (tag=%d)", index, kind, pool[index].Tag())
	}
	return e, nil
}
