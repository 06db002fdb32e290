package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/daimatz/scalafilter/pkg/filter"
	"github.com/daimatz/scalafilter/pkg/listing"
)

const fooClass = `
class public com/acme/Foo extends java/lang/Object
@Lscala/reflect/ScalaSignature;
source Foo.scala
field private final x I
method public x ()I
L0:
  line 3 L0
  aload 0
  getfield com/acme/Foo.x I
  ireturn
end
method public twice ()I
L0:
  line 5 L0
  aload 0
  invokevirtual com/acme/Foo.x ()I
  iconst_2
  imul
  ireturn
end
method public abstract f ()V
end
end
`

func build(t *testing.T) *Report {
	t.Helper()
	classes, err := listing.ParseString("Foo.lst", fooClass)
	require.NoError(t, err)
	c := classes[0]
	results := filter.NewChain(filter.DefaultOptions()).FilterClass(c)
	return &Report{Classes: []Class{
		NewClass(c, results),
		{Name: "com/acme/Broken", Error: "bad magic"},
	}}
}

func TestNewClass(t *testing.T) {
	r := build(t)
	want := Class{
		Name:   "com/acme/Foo",
		Source: "Foo.scala",
		Scala:  true,
		Methods: []Method{
			{
				Name: "x", Desc: "()I", Instructions: 3, Ignored: 3,
				Ranges: []Range{{Detector: "accessor", From: 0, To: 4, FromLine: 3, ToLine: 3}},
			},
			{Name: "twice", Desc: "()I", Instructions: 5},
		},
	}
	if diff := cmp.Diff(want, r.Classes[0]); diff != "" {
		t.Errorf("class mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, r.Classes[0].Filtered())

	s := r.Summary()
	assert.Equal(t, Summary{
		Classes: 2, ScalaClasses: 1, Errors: 1,
		Methods: 2, Filtered: 1, Instructions: 8, Ignored: 3,
	}, s)
}

func TestOnlyFiltered(t *testing.T) {
	full := build(t)
	r := full.OnlyFiltered()
	require.Len(t, r.Classes, 2)
	require.Len(t, r.Classes[0].Methods, 1)
	assert.Equal(t, "x", r.Classes[0].Methods[0].Name)
	assert.Equal(t, "bad magic", r.Classes[1].Error)

	// the receiver keeps every method
	assert.Len(t, full.Classes[0].Methods, 2)
}

func TestWriteText(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, build(t), Text))
	out := buf.String()
	for _, want := range []string{
		"com/acme/Foo (Foo.scala)\n",
		"  x()I  3/3 ignored\n",
		"    accessor      0..4  line 3\n",
		"  twice()I  0/5 ignored\n",
		"com/acme/Broken\n  error: bad magic\n",
		"2 classes (1 scala, 1 errors), 1 of 2 methods filtered, 3 of 8 instructions ignored\n",
	} {
		assert.Contains(t, out, want)
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, build(t), YAML))
	assert.True(t, strings.HasPrefix(buf.String(), "classes:\n  - name: com/acme/Foo\n"), buf.String())

	var got Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	if diff := cmp.Diff(build(t), &got); diff != "" {
		t.Errorf("yaml mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCBOR(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, Write(&a, build(t), CBOR))
	require.NoError(t, Write(&b, build(t), CBOR))
	assert.Equal(t, a.Bytes(), b.Bytes())

	got, err := ReadCBOR(&a)
	require.NoError(t, err)
	if diff := cmp.Diff(build(t), got); diff != "" {
		t.Errorf("cbor mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, YAML, f)
	_, err = ParseFormat("json")
	assert.Error(t, err)
	assert.Error(t, Write(&bytes.Buffer{}, &Report{}, "json"))
}
