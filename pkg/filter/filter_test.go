package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/scalafilter/pkg/bytecode"
	"github.com/daimatz/scalafilter/pkg/listing"
)

// parseClass reads a listing holding exactly one class.
func parseClass(t *testing.T, src string) *bytecode.Class {
	t.Helper()
	classes, err := listing.ParseString(t.Name(), src)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	return classes[0]
}

// detect runs d alone over the named method of c and returns the
// reported ranges as node indices.
func detect(t *testing.T, d Detector, c *bytecode.Class, method string) [][2]int {
	t.Helper()
	return detectIn(t, d, NewContext(c), method, "")
}

// detectIn is detect for a method selected by name and descriptor.
func detectIn(t *testing.T, d Detector, ctx Context, name, desc string) [][2]int {
	t.Helper()
	m := FindMethod(ctx, name, desc)
	require.NotNil(t, m, "method %s%s", name, desc)
	out := NewCollector()
	NewChainOf(d).Filter(m, ctx, out)
	var got [][2]int
	for _, r := range out.Ranges() {
		assert.Equal(t, d.Name(), r.Detector)
		got = append(got, [2]int{r.From.Index(), r.To.Index()})
	}
	return got
}

func assertRanges(t *testing.T, want, got [][2]int) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ranges mismatch (-want +got):\n%s", diff)
	}
}

// whole is the range covering all n nodes of a method.
func whole(n int) [][2]int {
	return [][2]int{{0, n - 1}}
}

func TestChainGate(t *testing.T) {
	src := `
class com/acme/Plain
field private x I
method public x ()I
  aload 0
  getfield com/acme/Plain.x I
  ireturn
end
end
`
	c := parseClass(t, src)
	chain := NewChain(DefaultOptions())
	out := NewCollector()
	assert.False(t, chain.Filter(c.Methods[0], NewContext(c), out))
	assert.Empty(t, out.Ranges())
	assert.Nil(t, chain.FilterClass(c))

	c.Annotations = []string{ScalaSignatureAnnotation}
	results := chain.FilterClass(c)
	require.Len(t, results, 1)
	got := results[c.Methods[0]].Ranges()
	require.Len(t, got, 1)
	assert.Equal(t, "accessor", got[0].Detector)
}

func TestChainSkipsEmptyMethods(t *testing.T) {
	c := parseClass(t, `
class com/acme/A
attribute ScalaSig
method public abstract f ()I
end
end
`)
	called := false
	d := detectorFunc{name: "probe", fn: func(*bytecode.Method, Context, Output) { called = true }}
	assert.False(t, NewChainOf(d).Filter(c.Methods[0], NewContext(c), NewCollector()))
	assert.False(t, called)
}

type detectorFunc struct {
	name string
	fn   func(*bytecode.Method, Context, Output)
}

func (d detectorFunc) Name() string { return d.name }
func (d detectorFunc) Detect(m *bytecode.Method, ctx Context, out Output) {
	d.fn(m, ctx, out)
}

func TestNewChainDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.Disabled = []string{"logging", "synthetic"}
	var names []string
	for _, d := range NewChain(opts).Detectors() {
		names = append(names, d.Name())
	}
	assert.NotContains(t, names, "logging")
	assert.NotContains(t, names, "synthetic")
	assert.Len(t, names, len(DetectorNames())-2)
}

func TestDetectorNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, name := range DetectorNames() {
		assert.False(t, seen[name], name)
		seen[name] = true
	}
	assert.Equal(t, []string{
		"accessor", "lazy-guard", "lazy-compute", "forwarder", "case-class",
		"module", "value-class", "logging", "suspicious", "synthetic",
	}, DetectorNames())
}

func TestCollector(t *testing.T) {
	l := instructions(t, "nop\nnop\nnop\nnop\nnop\nreturn")
	c := NewCollector()
	a := c.For("a")
	a.Ignore(l.Get(0), l.Get(1))
	a.Ignore(l.Get(0), l.Get(1))
	a.Ignore(l.Get(3), l.Get(2))
	c.For("b").Ignore(l.Get(0), l.Get(1))
	c.Ignore(l.Get(5), nil)

	require.Len(t, c.Ranges(), 3)
	assert.Equal(t, "b", c.Ranges()[2].Detector)
	// reversed bounds are normalized
	assert.Same(t, l.Get(2), c.Ranges()[1].From)
	assert.Equal(t, [][2]int{{0, 3}}, c.Merged())

	c.Ignore(l.Get(5), l.Get(5))
	assert.Equal(t, [][2]int{{0, 3}, {5, 5}}, c.Merged())
	assert.Nil(t, NewCollector().Merged())
}
