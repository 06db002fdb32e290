// Package analyzer runs a detector chain over many classes in parallel
// and gathers a report. Results keep the input order whatever the
// scheduling.
package analyzer

import (
	"context"
	"fmt"
	"runtime"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/daimatz/scalafilter/pkg/bytecode"
	"github.com/daimatz/scalafilter/pkg/classfile"
	"github.com/daimatz/scalafilter/pkg/classpath"
	"github.com/daimatz/scalafilter/pkg/filter"
	"github.com/daimatz/scalafilter/pkg/report"
)

var log = commonlog.GetLogger("scalafilter.analyzer")

// Analyzer runs a filter chain over classes, several at a time.
type Analyzer struct {
	chain *filter.Chain
	jobs  int
}

// New returns an analyzer running chain on up to jobs classes at once.
// jobs <= 0 means one per CPU.
func New(chain *filter.Chain, jobs int) *Analyzer {
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	return &Analyzer{chain: chain, jobs: jobs}
}

// Class filters one decoded class.
func (a *Analyzer) Class(c *bytecode.Class) report.Class {
	return report.NewClass(c, a.chain.FilterClass(c))
}

// Classes filters already decoded classes, e.g. read from listings.
func (a *Analyzer) Classes(ctx context.Context, classes []*bytecode.Class) (*report.Report, error) {
	return a.run(ctx, len(classes), func(i int) report.Class {
		return a.Class(classes[i])
	})
}

// Path filters every class of cp. A class that cannot be read or
// decoded is reported with its error; only failing to list the
// containers aborts the run.
func (a *Analyzer) Path(ctx context.Context, cp classpath.Path) (*report.Report, error) {
	entries, err := cp.Entries()
	if err != nil {
		return nil, fmt.Errorf("listing classes: %w", err)
	}
	log.Infof("analyzing %d classes with %d jobs", len(entries), a.jobs)
	return a.run(ctx, len(entries), func(i int) report.Class {
		return a.entry(entries[i])
	})
}

func (a *Analyzer) entry(e classpath.Entry) report.Class {
	cf, err := e.Load()
	if err != nil {
		log.Warningf("%s: %v", e.Name, err)
		return report.Class{Name: e.Name, Error: err.Error()}
	}
	c, err := classfile.Decode(cf)
	if err != nil {
		log.Warningf("%s: %v", e.Name, err)
		return report.Class{Name: e.Name, Error: err.Error()}
	}
	return a.Class(c)
}

func (a *Analyzer) run(ctx context.Context, n int, analyze func(int) report.Class) (*report.Report, error) {
	classes := make([]report.Class, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.jobs)
	for i := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			classes[i] = analyze(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &report.Report{Classes: classes}, nil
}
