package bytecode

import (
	"fmt"
	"strings"
)

// ArgumentTypes splits a method descriptor into its parameter descriptors.
func ArgumentTypes(descriptor string) ([]string, error) {
	start := strings.Index(descriptor, "(")
	end := strings.Index(descriptor, ")")
	if start != 0 || end == -1 {
		return nil, fmt.Errorf("invalid method descriptor: %s", descriptor)
	}

	params := descriptor[1:end]
	var types []string
	i := 0
	for i < len(params) {
		j := i
		for j < len(params) && params[j] == '[' {
			j++
		}
		if j == len(params) {
			return nil, fmt.Errorf("truncated array type in %s", descriptor)
		}
		switch params[j] {
		case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
			j++
		case 'L':
			semi := strings.IndexByte(params[j:], ';')
			if semi == -1 {
				return nil, fmt.Errorf("unterminated class type in %s", descriptor)
			}
			j += semi + 1
		default:
			return nil, fmt.Errorf("invalid type descriptor char '%c' in %s", params[j], descriptor)
		}
		types = append(types, params[i:j])
		i = j
	}
	return types, nil
}

// ArgumentCount returns the number of parameters, or -1 for a malformed
// descriptor.
func ArgumentCount(descriptor string) int {
	types, err := ArgumentTypes(descriptor)
	if err != nil {
		return -1
	}
	return len(types)
}

// ReturnType returns the descriptor after ')', or "" when there is none.
func ReturnType(descriptor string) string {
	end := strings.LastIndex(descriptor, ")")
	if end == -1 {
		return ""
	}
	return descriptor[end+1:]
}

// MethodDesc builds a method descriptor.
func MethodDesc(ret string, args ...string) string {
	return "(" + strings.Join(args, "") + ")" + ret
}

// ObjectDesc returns the descriptor of an internal class name.
func ObjectDesc(internalName string) string {
	return "L" + internalName + ";"
}

// LoadOpcode returns the xLOAD opcode matching a field or argument
// descriptor.
func LoadOpcode(desc string) int {
	if desc == "" {
		return OpAload
	}
	switch desc[0] {
	case 'Z', 'B', 'C', 'S', 'I':
		return OpIload
	case 'J':
		return OpLload
	case 'F':
		return OpFload
	case 'D':
		return OpDload
	}
	return OpAload
}

// ReturnOpcode returns the xRETURN opcode matching a return descriptor.
func ReturnOpcode(desc string) int {
	switch desc {
	case "V":
		return OpReturn
	case "Z", "B", "C", "S", "I":
		return OpIreturn
	case "J":
		return OpLreturn
	case "F":
		return OpFreturn
	case "D":
		return OpDreturn
	}
	return OpAreturn
}
