package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/daimatz/scalafilter/pkg/analyzer"
	"github.com/daimatz/scalafilter/pkg/bytecode"
	"github.com/daimatz/scalafilter/pkg/classpath"
	"github.com/daimatz/scalafilter/pkg/filter"
	"github.com/daimatz/scalafilter/pkg/listing"
	"github.com/daimatz/scalafilter/pkg/report"
)

// ReportFlags are shared by the commands writing a report.
type ReportFlags struct {
	Format       string `help:"Output format" enum:"text,yaml,cbor" default:"text" short:"f"`
	Output       string `help:"Write the report to this file instead of stdout" short:"o" type:"path"`
	OnlyFiltered bool   `help:"Only list methods with ignored instructions"`
}

// OutputFlags are shared by the commands producing a report.
type OutputFlags struct {
	ReportFlags `embed:""`

	Jobs int `help:"Number of classes analyzed in parallel" default:"0" short:"j"` // 0 means use CPU count
}

func (o *ReportFlags) write(r *report.Report) (err error) {
	if o.OnlyFiltered {
		r = r.OnlyFiltered()
	}
	format, err := report.ParseFormat(o.Format)
	if err != nil {
		return err
	}
	var w io.Writer = os.Stdout
	if o.Output != "" {
		f, cerr := os.Create(o.Output)
		if cerr != nil {
			return fmt.Errorf("failed to create output file: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
		if format == report.Text {
			color.NoColor = true
		}
	}
	return report.Write(w, r, format)
}

func (o *OutputFlags) analyzer(ctx *Context) *analyzer.Analyzer {
	return analyzer.New(filter.NewChain(ctx.Config.FilterOptions()), o.Jobs)
}

// AnalyzeCmd reads compiled classes.
type AnalyzeCmd struct {
	OutputFlags `embed:""`

	Paths []string `arg:"" help:"Class files, directories, jar or jmod files" type:"path" name:"path"`
}

func (cmd *AnalyzeCmd) Run(ctx *Context) error {
	cp, err := classpath.OpenPath(cmd.Paths...)
	if err != nil {
		return fmt.Errorf("failed to open classpath: %w", err)
	}
	r, err := cmd.analyzer(ctx).Path(context.Background(), cp)
	if err != nil {
		return err
	}
	return cmd.write(r)
}

// ListingCmd reads instruction listings.
type ListingCmd struct {
	OutputFlags `embed:""`

	Files []string `arg:"" help:"Listing files" type:"existingfile" name:"file"`
}

func (cmd *ListingCmd) Run(ctx *Context) error {
	var classes []*bytecode.Class
	for _, path := range cmd.Files {
		cs, err := listing.ParseFile(path)
		if err != nil {
			return err
		}
		classes = append(classes, cs...)
	}
	r, err := cmd.analyzer(ctx).Classes(context.Background(), classes)
	if err != nil {
		return err
	}
	return cmd.write(r)
}

// ShowCmd renders a report saved with --format cbor.
type ShowCmd struct {
	ReportFlags `embed:""`

	File string `arg:"" help:"CBOR report file" type:"existingfile" name:"file"`
}

func (cmd *ShowCmd) Run(ctx *Context) error {
	f, err := os.Open(cmd.File)
	if err != nil {
		return err
	}
	defer f.Close()
	r, err := report.ReadCBOR(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cmd.File, err)
	}
	return cmd.write(r)
}

// DetectorsCmd lists the detectors in chain order.
type DetectorsCmd struct{}

func (cmd *DetectorsCmd) Run(ctx *Context) error {
	for _, name := range filter.DetectorNames() {
		if ctx.Config.Disables(name) {
			color.Yellow("%-13s disabled", name)
			continue
		}
		color.Green("%-13s enabled", name)
	}
	return nil
}
