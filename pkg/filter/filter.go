// Package filter recognizes instruction ranges that scalac generates
// rather than the programmer writes, so coverage tools can leave them
// out of their counts.
package filter

import (
	"slices"

	"github.com/tliron/commonlog"

	"github.com/daimatz/scalafilter/pkg/bytecode"
)

var log = commonlog.GetLogger("scalafilter.filter")

// Detector matches one compiler generated shape. Detect must not keep
// state between calls; a failed match simply reports nothing.
type Detector interface {
	Name() string
	Detect(m *bytecode.Method, ctx Context, out Output)
}

// Options tunes the detector set.
type Options struct {
	// Disabled lists detector names to leave out of the chain.
	Disabled []string
	// AccessorMaxNodes skips accessor candidates of this many nodes or
	// more, markers included.
	AccessorMaxNodes int
	// ForwarderMaxNodes skips forwarder candidates longer than this.
	ForwarderMaxNodes int
	// SyntheticBridges also ignores one-liner bridge methods.
	SyntheticBridges bool
}

// DefaultOptions returns the options used when no configuration is given.
func DefaultOptions() Options {
	return Options{
		AccessorMaxNodes:  10,
		ForwarderMaxNodes: 64,
	}
}

// DefaultDetectors returns every known detector, configured by opts.
// Disabled names are not applied here.
func DefaultDetectors(opts Options) []Detector {
	return []Detector{
		&AccessorDetector{MaxNodes: opts.AccessorMaxNodes},
		LazyGuardDetector{},
		LazyComputeDetector{},
		&ForwarderDetector{MaxNodes: opts.ForwarderMaxNodes},
		CaseClassDetector{},
		ModuleDetector{},
		ValueClassDetector{},
		LoggingDetector{},
		SuspiciousDetector{},
		&SyntheticDetector{Bridges: opts.SyntheticBridges},
	}
}

// DetectorNames returns the names of DefaultDetectors in chain order.
func DetectorNames() []string {
	var names []string
	for _, d := range DefaultDetectors(DefaultOptions()) {
		names = append(names, d.Name())
	}
	return names
}

// Chain runs a list of detectors behind the applicability gate.
type Chain struct {
	detectors []Detector
}

// NewChain returns the default detectors minus those opts disables.
func NewChain(opts Options) *Chain {
	var detectors []Detector
	for _, d := range DefaultDetectors(opts) {
		if slices.Contains(opts.Disabled, d.Name()) {
			log.Debugf("detector %s disabled", d.Name())
			continue
		}
		detectors = append(detectors, d)
	}
	return NewChainOf(detectors...)
}

// NewChainOf returns a chain running exactly detectors.
func NewChainOf(detectors ...Detector) *Chain {
	return &Chain{detectors: detectors}
}

// Detectors returns the detectors of the chain in order.
func (c *Chain) Detectors() []Detector {
	return c.detectors
}

// attributor is implemented by outputs that track which detector
// reported a range, such as *Collector.
type attributor interface {
	For(detector string) Output
}

// Filter runs every detector against m and reports whether m passed the
// gate.
func (c *Chain) Filter(m *bytecode.Method, ctx Context, out Output) bool {
	if !Applicable(m, ctx) {
		return false
	}
	a, attributed := out.(attributor)
	for _, d := range c.detectors {
		o := out
		if attributed {
			o = a.For(d.Name())
		}
		d.Detect(m, ctx, o)
	}
	return true
}

// FilterClass runs the chain over every method of class and returns one
// collector per method, keyed by the method. A class without a scalac
// signature yields nil.
func (c *Chain) FilterClass(class *bytecode.Class) map[*bytecode.Method]*Collector {
	ctx := NewContext(class)
	if !IsScalaClass(ctx) {
		log.Debugf("%s: no scala signature, skipped", class.Name)
		return nil
	}
	results := make(map[*bytecode.Method]*Collector, len(class.Methods))
	for _, m := range class.Methods {
		out := NewCollector()
		if c.Filter(m, ctx, out) {
			for _, r := range out.Ranges() {
				log.Debugf("%s.%s%s: %s ignores %d..%d", class.Name, m.Name, m.Desc,
					r.Detector, r.From.Index(), r.To.Index())
			}
		}
		results[m] = out
	}
	return results
}

// ignoreAll reports the whole instruction list of m.
func ignoreAll(m *bytecode.Method, out Output) {
	out.Ignore(m.Instructions.First(), m.Instructions.Last())
}
