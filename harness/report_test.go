package harness

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/caffeineduck/falakrun/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int32p(v int32) *int32    { return &v }
func stringp(s string) *string { return &s }

func trapErr() error {
	return &executor.Error{Kind: executor.KindTrap, Cause: errors.New("wasm error: integer divide by zero")}
}

func checked(o Outcome) Outcome {
	o.check()
	return o
}

// =============================================================================
// Expectations
// =============================================================================

func TestOutcomeNoExpectation(t *testing.T) {
	assert.False(t, checked(Outcome{Status: 7}).Failed())
	assert.True(t, checked(Outcome{Err: trapErr()}).Failed())
}

func TestOutcomeStatusExpectation(t *testing.T) {
	c := Case{Path: "a.wat", Expect: &Expectation{Status: int32p(120)}}

	o := checked(Outcome{Case: c, Status: 120})
	assert.False(t, o.Failed())

	o = checked(Outcome{Case: c, Status: 24})
	assert.True(t, o.Failed())
	assert.Equal(t, []string{"expected exit code 120, got 24"}, o.Mismatches)
}

func TestOutcomeOutputExpectation(t *testing.T) {
	c := Case{Path: "a.wat", Expect: &Expectation{Output: stringp("Hi\n")}}

	assert.False(t, checked(Outcome{Case: c, Output: "Hi\n"}).Failed())

	o := checked(Outcome{Case: c, Output: "Hi"})
	require.Len(t, o.Mismatches, 1)
	assert.Contains(t, o.Mismatches[0], "expected output")
}

func TestOutcomeErrorExpectation(t *testing.T) {
	c := Case{Path: "a.wat", Expect: &Expectation{Error: "trap"}}

	o := checked(Outcome{Case: c, Err: trapErr()})
	assert.False(t, o.Failed())
	assert.Empty(t, o.Mismatches)

	o = checked(Outcome{Case: c, Status: 1})
	assert.True(t, o.Failed())
	assert.Equal(t, []string{"expected TrapError, got exit code 1"}, o.Mismatches)

	o = checked(Outcome{Case: c, Err: &executor.Error{Kind: executor.KindTimeout}})
	assert.True(t, o.Failed())
	assert.Equal(t, []string{"expected TrapError, got TimeoutError"}, o.Mismatches)
}

func TestOutcomeStatusIgnoredOnFailure(t *testing.T) {
	c := Case{Path: "a.wat", Expect: &Expectation{Status: int32p(0)}}
	o := checked(Outcome{Case: c, Err: trapErr()})
	assert.Empty(t, o.Mismatches)
	assert.True(t, o.Failed())
}

func TestCaseDisplayName(t *testing.T) {
	assert.Equal(t, "004_factorial", Case{Path: "Test_Files/004_factorial.wat"}.DisplayName())
	assert.Equal(t, "fact", Case{Name: "fact", Path: "Test_Files/004_factorial.wat"}.DisplayName())
}

// =============================================================================
// Reporters
// =============================================================================

func sampleOutcomes() []Outcome {
	return []Outcome{
		checked(Outcome{Case: Case{Path: "Test_Files/001_hello.wat"}, Output: "Hi\n", Duration: time.Millisecond}),
		checked(Outcome{Case: Case{Path: "Test_Files/004_factorial.wat"}, Status: 120, Duration: time.Millisecond}),
		checked(Outcome{Case: Case{Path: "div.wat"}, Err: trapErr(), Duration: time.Millisecond}),
	}
}

func drain(t *testing.T, rep Reporter) Summary {
	t.Helper()
	outcomes := sampleOutcomes()
	s, err := Drain(func(yield func(Case, Outcome) bool) {
		for _, o := range outcomes {
			if !yield(o.Case, o) {
				return
			}
		}
	}, rep, "smoke")
	require.NoError(t, err)
	return s
}

func TestTextReporter(t *testing.T) {
	var buf bytes.Buffer
	s := drain(t, NewTextReporter(&buf, false))

	want := "Test_Files/001_hello.wat\n" +
		"Hi\n" +
		"exit code 0\n" +
		Rule + "\n\n\n" +
		"Test_Files/004_factorial.wat\n" +
		"exit code 120\n" +
		Rule + "\n\n\n" +
		"div.wat\n" +
		"TrapError: wasm error: integer divide by zero\n" +
		Rule + "\n\n\n" +
		"3 cases, 2 passed, 1 failed (3ms)\n"
	assert.Equal(t, want, buf.String())

	assert.False(t, s.OK())
	assert.Equal(t, 1, s.ByKind[executor.KindTrap])
}

func TestTextReporterExpectedFailure(t *testing.T) {
	var buf bytes.Buffer
	rep := NewTextReporter(&buf, false)

	o := checked(Outcome{Case: Case{Path: "div.wat", Expect: &Expectation{Error: "trap"}}, Err: trapErr()})
	require.NoError(t, rep.Report(o))
	assert.Contains(t, buf.String(), "expected TrapError")
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	drain(t, NewJSONReporter(&buf))

	var report struct {
		Suite  string         `json:"suite"`
		Total  int            `json:"total"`
		Failed int            `json:"failed"`
		ByKind map[string]int `json:"by_kind"`
		Cases  []struct {
			Name   string `json:"name"`
			Status int32  `json:"status"`
			Kind   string `json:"kind"`
			Failed bool   `json:"failed"`
		} `json:"cases"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))

	assert.Equal(t, "smoke", report.Suite)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.ByKind["trap"])
	require.Len(t, report.Cases, 3)
	assert.Equal(t, "004_factorial", report.Cases[1].Name)
	assert.Equal(t, int32(120), report.Cases[1].Status)
	assert.Equal(t, "trap", report.Cases[2].Kind)
	assert.True(t, report.Cases[2].Failed)
}

func TestJUnitReporter(t *testing.T) {
	var buf bytes.Buffer
	drain(t, NewJUnitReporter(&buf))
	require.True(t, strings.HasPrefix(buf.String(), "<?xml"))

	var suite junitSuite
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &suite))
	assert.Equal(t, "smoke", suite.Name)
	assert.Equal(t, 3, suite.Tests)
	assert.Equal(t, 1, suite.Failures)
	require.Len(t, suite.Cases, 3)
	assert.Nil(t, suite.Cases[0].Failure)
	assert.Equal(t, "Hi\n", suite.Cases[0].SystemOut)
	require.NotNil(t, suite.Cases[2].Failure)
	assert.Equal(t, "TrapError", suite.Cases[2].Failure.Type)
}

func TestNewReporter(t *testing.T) {
	for _, format := range []string{"", "text", "json", "junit"} {
		rep, err := NewReporter(format, &bytes.Buffer{}, false)
		assert.NoError(t, err, format)
		assert.NotNil(t, rep, format)
	}

	_, err := NewReporter("tap", &bytes.Buffer{}, false)
	assert.ErrorContains(t, err, "unknown format")
}
