package filter

import (
	"sort"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

// Output receives the ranges a detector asserts are compiler generated.
// Both ends are inclusive. Ranges may overlap or repeat.
type Output interface {
	Ignore(from, to bytecode.Node)
}

// Range is one ignored span, attributed to the detector that reported it.
type Range struct {
	Detector string
	From     bytecode.Node
	To       bytecode.Node
}

// Collector is an Output that records ranges per detector. Exact
// duplicates from the same detector are kept once.
type Collector struct {
	ranges []Range
	seen   map[Range]bool
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{seen: make(map[Range]bool)}
}

// For returns an Output that attributes its ranges to detector.
func (c *Collector) For(detector string) Output {
	return &attributed{c: c, detector: detector}
}

type attributed struct {
	c        *Collector
	detector string
}

func (a *attributed) Ignore(from, to bytecode.Node) {
	a.c.add(a.detector, from, to)
}

// Ignore records a range without attribution.
func (c *Collector) Ignore(from, to bytecode.Node) {
	c.add("", from, to)
}

func (c *Collector) add(detector string, from, to bytecode.Node) {
	if from == nil || to == nil {
		return
	}
	if to.Index() < from.Index() {
		from, to = to, from
	}
	r := Range{Detector: detector, From: from, To: to}
	if c.seen[r] {
		return
	}
	c.seen[r] = true
	c.ranges = append(c.ranges, r)
}

// Ranges returns the recorded ranges in reporting order.
func (c *Collector) Ranges() []Range {
	return c.ranges
}

// Merged returns the union of the recorded ranges as sorted, disjoint
// [from, to] index pairs.
func (c *Collector) Merged() [][2]int {
	spans := make([][2]int, 0, len(c.ranges))
	for _, r := range c.ranges {
		spans = append(spans, [2]int{r.From.Index(), r.To.Index()})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
	var merged [][2]int
	for _, s := range spans {
		if n := len(merged); n > 0 && s[0] <= merged[n-1][1]+1 {
			if s[1] > merged[n-1][1] {
				merged[n-1][1] = s[1]
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}
