package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Manu343726/disfuzz/pkg/compare"
	"github.com/Manu343726/disfuzz/pkg/reassembly"
	"github.com/Manu343726/disfuzz/pkg/toolchain"
	"github.com/Manu343726/disfuzz/pkg/utils"
)

var (
	ErrFormatDivergence    = errors.New("disassembly differs between input formats")
	ErrCrossToolMismatch   = errors.New("disassembly differs from the reference disassembler")
	ErrRoundTripDivergence = errors.New("disassembly of the reassembled binary differs")
)

// FormatDivergenceError lists the formats whose disassembly differs from the
// raw binary one
type FormatDivergenceError struct {
	Formats []toolchain.InputFormat
}

func (e *FormatDivergenceError) Error() string {
	return fmt.Sprintf("%v: %s", ErrFormatDivergence, utils.FormatSlice(e.Formats, ", "))
}

func (e *FormatDivergenceError) Unwrap() error {
	return ErrFormatDivergence
}

func (e *FormatDivergenceError) Details() []string {
	return utils.Map(e.Formats, func(f toolchain.InputFormat) string {
		return fmt.Sprintf("%s output differs from %s", f, toolchain.FormatBinary)
	})
}

// DifferentialError carries the comparison report of a failed iteration
type DifferentialError struct {
	Report *compare.Report
}

func (e *DifferentialError) Error() string {
	return fmt.Sprintf("%v: %d mismatches in %d compared records",
		ErrCrossToolMismatch, len(e.Report.Mismatches), e.Report.Compared)
}

func (e *DifferentialError) Unwrap() error {
	return ErrCrossToolMismatch
}

func (e *DifferentialError) Details() []string {
	return utils.Map(e.Report.Mismatches, compare.Mismatch.String)
}

// RoundTripError carries both disassemblies of a diverging round trip
type RoundTripError struct {
	RoundTrip *reassembly.RoundTrip
}

func (e *RoundTripError) Error() string {
	line, d0, d1 := e.RoundTrip.FirstDifference()
	return fmt.Sprintf("%v: first difference at line %d: '%s' != '%s'",
		ErrRoundTripDivergence, line, strings.TrimSpace(d0), strings.TrimSpace(d1))
}

func (e *RoundTripError) Unwrap() error {
	return ErrRoundTripDivergence
}

func (e *RoundTripError) Details() []string {
	return utils.Lines(e.RoundTrip.Diff())
}

// detailed is implemented by errors that carry a list of findings
type detailed interface {
	Details() []string
}

// errorDetails returns the findings of the first detailed error in the chain
func errorDetails(err error) []string {
	var d detailed
	if errors.As(err, &d) {
		return d.Details()
	}
	return nil
}
