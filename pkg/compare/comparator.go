package compare

import (
	"fmt"
	"strings"

	"github.com/Manu343726/disfuzz/pkg/disasm"
	"github.com/Manu343726/disfuzz/pkg/utils"
	"github.com/google/go-cmp/cmp"
)

// Suppression is a difference accepted by an equivalence rule
type Suppression struct {
	Index     int
	Rule      string
	Reference disasm.InstructionRecord
	UnderTest disasm.InstructionRecord
}

// Mismatch is a difference no rule accepted
type Mismatch struct {
	Index     int
	Reference disasm.InstructionRecord
	UnderTest disasm.InstructionRecord
}

func (m Mismatch) String() string {
	return fmt.Sprintf("#%d\n  reference:  %s\n  under test: %s", m.Index, m.Reference, m.UnderTest)
}

// Diff renders the difference between both records (-reference +under-test)
func (m Mismatch) Diff() string {
	return cmp.Diff(m.Reference, m.UnderTest)
}

// Report is the outcome of comparing two tool outputs
type Report struct {
	Compared     int
	ReferenceLen int
	UnderTestLen int
	Suppressed   []Suppression
	Mismatches   []Mismatch
}

// Passed reports whether every compared record was equal or equivalent
func (r *Report) Passed() bool {
	return len(r.Mismatches) == 0
}

func (r *Report) String() string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "compared %d records (reference %d, under test %d), %d suppressed, %d mismatches",
		r.Compared, r.ReferenceLen, r.UnderTestLen, len(r.Suppressed), len(r.Mismatches))
	for _, mismatch := range r.Mismatches {
		fmt.Fprintf(&builder, "\n%s", mismatch)
	}

	return builder.String()
}

// Comparator compares records positionally and consults its rules for every
// difference
type Comparator struct {
	Rules []EquivalenceRule

	// OnMismatch, if set, is called for every mismatch as it is found
	OnMismatch func(Mismatch)
}

func NewComparator() *Comparator {
	return &Comparator{Rules: DefaultRules}
}

// Match returns the first rule accepting the pair, if any
func (c *Comparator) Match(ctx Context, reference, underTest disasm.InstructionRecord) (EquivalenceRule, bool) {
	for _, rule := range c.Rules {
		if rule.Match(ctx, reference, underTest) {
			return rule, true
		}
	}
	return EquivalenceRule{}, false
}

// Compare walks both outputs up to the length of the shorter one. A mismatch
// does not stop the scan; every pair is checked.
func (c *Comparator) Compare(ctx Context, reference, underTest disasm.ToolOutput) *Report {
	report := &Report{
		ReferenceLen: len(reference),
		UnderTestLen: len(underTest),
	}

	for i, pair := range utils.Zip(reference, underTest) {
		ref, ut := pair.Decompose()
		report.Compared++

		if ref.Equal(ut) {
			continue
		}

		if rule, ok := c.Match(ctx, ref, ut); ok {
			report.Suppressed = append(report.Suppressed, Suppression{Index: i, Rule: rule.Name, Reference: ref, UnderTest: ut})
			continue
		}

		mismatch := Mismatch{Index: i, Reference: ref, UnderTest: ut}
		report.Mismatches = append(report.Mismatches, mismatch)
		if c.OnMismatch != nil {
			c.OnMismatch(mismatch)
		}
	}

	return report
}

// CompareText normalizes both raw tool outputs with the built-in profiles and compares them
func (c *Comparator) CompareText(ctx Context, reference, underTest string) (*Report, error) {
	referenceOutput, err := disasm.ReferenceProfile.Normalize(reference)
	if err != nil {
		return nil, err
	}
	underTestOutput, err := disasm.UnderTestProfile.Normalize(underTest)
	if err != nil {
		return nil, err
	}

	return c.Compare(ctx, referenceOutput, underTestOutput), nil
}

// Describe lists the rules of the comparator
func (c *Comparator) Describe() string {
	var builder strings.Builder
	for i, rule := range c.Rules {
		fmt.Fprintf(&builder, "%c. %s: %s\n", 'A'+i, rule.Name, rule.Description)
	}
	return builder.String()
}
