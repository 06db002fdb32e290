package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	Text Format = "text"
	YAML Format = "yaml"
	CBOR Format = "cbor"
)

// Formats lists the supported encodings.
var Formats = []Format{Text, YAML, CBOR}

// Write encodes r to w in format f.
func Write(w io.Writer, r *Report, f Format) error {
	switch f {
	case Text, "":
		return WriteText(w, r)
	case YAML:
		return WriteYAML(w, r)
	case CBOR:
		return WriteCBOR(w, r)
	}
	return fmt.Errorf("unknown format %q", f)
}

var (
	classColor    = color.New(color.Bold)
	methodColor   = color.New(color.FgCyan)
	detectorColor = color.New(color.FgGreen)
	errorColor    = color.New(color.FgRed)
	dimColor      = color.New(color.Faint)
)

// WriteText writes r for people. Colours follow color.NoColor.
func WriteText(w io.Writer, r *Report) error {
	ew := &errWriter{w: w}
	for _, c := range r.Classes {
		name := c.Name
		if c.Source != "" {
			name += " (" + c.Source + ")"
		}
		classColor.Fprintln(ew, name)
		if c.Error != "" {
			errorColor.Fprintf(ew, "  error: %s\n", c.Error)
			continue
		}
		if !c.Scala {
			dimColor.Fprintln(ew, "  not compiled by scalac")
			continue
		}
		for _, m := range c.Methods {
			methodColor.Fprintf(ew, "  %s%s", m.Name, m.Desc)
			fmt.Fprintf(ew, "  %d/%d ignored\n", m.Ignored, m.Instructions)
			for _, rg := range m.Ranges {
				fmt.Fprint(ew, "    ")
				detectorColor.Fprintf(ew, "%-13s", rg.Detector)
				fmt.Fprintf(ew, " %d..%d", rg.From, rg.To)
				if rg.FromLine > 0 {
					dimColor.Fprintf(ew, "  %s", lines(rg))
				}
				fmt.Fprintln(ew)
			}
		}
	}
	s := r.Summary()
	fmt.Fprintf(ew, "%d classes (%d scala, %d errors), %d of %d methods filtered, %d of %d instructions ignored\n",
		s.Classes, s.ScalaClasses, s.Errors, s.Filtered, s.Methods, s.Ignored, s.Instructions)
	return ew.err
}

func lines(rg Range) string {
	if rg.FromLine == rg.ToLine || rg.ToLine == 0 {
		return fmt.Sprintf("line %d", rg.FromLine)
	}
	return fmt.Sprintf("lines %d-%d", rg.FromLine, rg.ToLine)
}

// errWriter keeps the first write error and drops later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

// WriteYAML writes r as a YAML document.
func WriteYAML(w io.Writer, r *Report) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("report: encoding yaml: %w", err)
	}
	return encoder.Close()
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("report: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// WriteCBOR writes r in canonical CBOR, so equal reports encode to
// equal bytes.
func WriteCBOR(w io.Writer, r *Report) error {
	data, err := cborEncMode.Marshal(r)
	if err != nil {
		return fmt.Errorf("report: encoding cbor: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ReadCBOR decodes a report written by WriteCBOR.
func ReadCBOR(rd io.Reader) (*Report, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: unmarshal: %w", err)
	}
	return &r, nil
}

// ParseFormat returns the format called s, case-insensitively.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}
