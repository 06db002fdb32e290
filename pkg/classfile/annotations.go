package classfile

import (
	"fmt"
)

// parseAnnotationTypes returns the type descriptor of every annotation in
// a Runtime(In)VisibleAnnotations attribute. Element values are skipped.
func parseAnnotationTypes(data []byte, pool []ConstantPoolEntry) ([]string, error) {
	r := &byteReader{data: data}
	n := int(r.ReadU16())
	types := make([]string, 0, n)
	for i := 0; i < n; i++ {
		desc, err := GetUtf8(pool, r.ReadU16())
		if err != nil {
			return nil, fmt.Errorf("annotation %d type: %w", i, err)
		}
		skipElementValuePairs(r)
		if r.err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, r.err)
		}
		types = append(types, desc)
	}
	return types, r.err
}

func skipElementValuePairs(r *byteReader) {
	pairs := int(r.ReadU16())
	for j := 0; j < pairs && r.err == nil; j++ {
		r.ReadU16() // element_name_index
		skipElementValue(r)
	}
}

func skipElementValue(r *byteReader) {
	tag := r.ReadU8()
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's', 'c':
		r.ReadU16()
	case 'e':
		r.ReadU16()
		r.ReadU16()
	case '@':
		r.ReadU16()
		skipElementValuePairs(r)
	case '[':
		n := int(r.ReadU16())
		for i := 0; i < n && r.err == nil; i++ {
			skipElementValue(r)
		}
	default:
		r.fail(fmt.Errorf("unknown element_value tag %q", tag))
	}
}
