package harness

import (
	"fmt"
	"time"

	"github.com/caffeineduck/falakrun/executor"
)

// Outcome is the observed result of one case.
type Outcome struct {
	Case       Case
	Status     int32
	Output     string
	Duration   time.Duration
	Err        error
	Mismatches []string
}

// Kind returns the failure classification, or "" if the case produced a status.
func (o Outcome) Kind() executor.Kind {
	return executor.KindOf(o.Err)
}

// Failed reports whether the outcome counts against the run: an
// unexpected failure, or any expectation that was not met.
func (o Outcome) Failed() bool {
	if len(o.Mismatches) > 0 {
		return true
	}
	return o.Err != nil && o.Case.Expect.errorKind() == ""
}

// check compares the outcome with the case's expectation.
func (o *Outcome) check() {
	exp := o.Case.Expect
	if exp == nil {
		return
	}

	if want := exp.errorKind(); want != "" {
		switch got := o.Kind(); {
		case got == "":
			o.mismatch("expected %s, got exit code %d", want.Label(), o.Status)
		case got != want:
			o.mismatch("expected %s, got %s", want.Label(), got.Label())
		}
	} else if o.Err == nil && exp.Status != nil && *exp.Status != o.Status {
		o.mismatch("expected exit code %d, got %d", *exp.Status, o.Status)
	}

	if exp.Output != nil && *exp.Output != o.Output {
		o.mismatch("expected output %q, got %q", *exp.Output, o.Output)
	}
}

func (o *Outcome) mismatch(format string, args ...any) {
	o.Mismatches = append(o.Mismatches, fmt.Sprintf(format, args...))
}
