package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/daimatz/scalafilter/pkg/config"
)

// Context is handed to every command.
type Context struct {
	Config *config.Config
}

// CLI is the command line grammar.
var CLI struct {
	Config  string `help:"Configuration file path (default ./scalafilter.toml when present)" type:"path"`
	Verbose int    `help:"Increase log verbosity, repeatable" short:"v" type:"counter"`
	NoColor bool   `help:"Disable colored output"`

	Analyze   AnalyzeCmd   `cmd:"" help:"Analyze class files, class directories, jars and jmods"`
	Listing   ListingCmd   `cmd:"" help:"Analyze classes written as instruction listings"`
	Show      ShowCmd      `cmd:"" help:"Render a report saved in CBOR"`
	Detectors DetectorsCmd `cmd:"" help:"List the detectors and whether they are enabled"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("scalafilter"),
		kong.Description("Finds the scalac generated instructions a coverage report should ignore."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var logPath *string
	if cfg.Log.File != "" {
		logPath = &cfg.Log.File
	}
	commonlog.Configure(cfg.Log.Verbosity+CLI.Verbose, logPath)
	if CLI.NoColor {
		color.NoColor = true
	}

	if err := ctx.Run(&Context{Config: cfg}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
