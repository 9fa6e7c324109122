package harness

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/caffeineduck/falakrun/executor"
	"github.com/charmbracelet/lipgloss"
)

// Reporter receives outcomes as they are produced.
type Reporter interface {
	Report(o Outcome) error
	Finish(s Summary) error
}

// Summary tallies a run.
type Summary struct {
	Suite    string
	Total    int
	Passed   int
	Failed   int
	Duration time.Duration
	ByKind   map[executor.Kind]int
}

// Add counts o.
func (s *Summary) Add(o Outcome) {
	s.Total++
	s.Duration += o.Duration
	if o.Failed() {
		s.Failed++
	} else {
		s.Passed++
	}
	if k := o.Kind(); k != "" {
		if s.ByKind == nil {
			s.ByKind = make(map[executor.Kind]int)
		}
		s.ByKind[k]++
	}
}

// OK reports whether no case failed.
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Rule separates cases in the text report.
const Rule = "------------------------"

var (
	pathStyle = lipgloss.NewStyle().
			Bold(true)
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
	ruleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// TextReporter writes the human-readable report: the case path, its
// output, "exit code N" or the failure, then a rule.
type TextReporter struct {
	w     io.Writer
	color bool
}

// NewTextReporter returns a TextReporter. Styling is applied only when color is set.
func NewTextReporter(w io.Writer, color bool) *TextReporter {
	return &TextReporter{w: w, color: color}
}

func (r *TextReporter) paint(style lipgloss.Style, s string) string {
	if !r.color {
		return s
	}
	return style.Render(s)
}

func (r *TextReporter) Report(o Outcome) error {
	var b strings.Builder
	b.WriteString(r.paint(pathStyle, o.Case.Path))
	b.WriteString("\n")
	if o.Output != "" {
		b.WriteString(o.Output)
		if !strings.HasSuffix(o.Output, "\n") {
			b.WriteString("\n")
		}
	}

	switch {
	case o.Err != nil && o.Failed():
		b.WriteString(r.paint(errorStyle, o.Err.Error()))
	case o.Err != nil:
		b.WriteString(r.paint(statusStyle, "expected "+o.Err.Error()))
	default:
		b.WriteString(r.paint(statusStyle, fmt.Sprintf("exit code %d", o.Status)))
	}
	b.WriteString("\n")

	for _, m := range o.Mismatches {
		b.WriteString(r.paint(errorStyle, "mismatch: "+m))
		b.WriteString("\n")
	}
	b.WriteString(r.paint(ruleStyle, Rule))
	b.WriteString("\n\n\n")

	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *TextReporter) Finish(s Summary) error {
	line := fmt.Sprintf("%d cases, %d passed, %d failed (%v)", s.Total, s.Passed, s.Failed, s.Duration.Round(time.Millisecond))
	style := statusStyle
	if !s.OK() {
		style = errorStyle
	}
	_, err := fmt.Fprintln(r.w, r.paint(style, line))
	return err
}

type jsonCase struct {
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	Status     int32    `json:"status"`
	Output     string   `json:"output"`
	DurationMS int64    `json:"duration_ms"`
	Kind       string   `json:"kind,omitempty"`
	Error      string   `json:"error,omitempty"`
	Mismatches []string `json:"mismatches,omitempty"`
	Failed     bool     `json:"failed"`
}

type jsonReport struct {
	Suite      string         `json:"suite,omitempty"`
	Total      int            `json:"total"`
	Passed     int            `json:"passed"`
	Failed     int            `json:"failed"`
	DurationMS int64          `json:"duration_ms"`
	ByKind     map[string]int `json:"by_kind,omitempty"`
	Cases      []jsonCase     `json:"cases"`
}

// JSONReporter buffers outcomes and writes one JSON document on Finish.
type JSONReporter struct {
	w     io.Writer
	cases []jsonCase
}

func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{w: w, cases: []jsonCase{}}
}

func (r *JSONReporter) Report(o Outcome) error {
	c := jsonCase{
		Name:       o.Case.DisplayName(),
		Path:       o.Case.Path,
		Status:     o.Status,
		Output:     o.Output,
		DurationMS: o.Duration.Milliseconds(),
		Kind:       string(o.Kind()),
		Mismatches: o.Mismatches,
		Failed:     o.Failed(),
	}
	if o.Err != nil {
		c.Error = o.Err.Error()
	}
	r.cases = append(r.cases, c)
	return nil
}

func (r *JSONReporter) Finish(s Summary) error {
	report := jsonReport{
		Suite:      s.Suite,
		Total:      s.Total,
		Passed:     s.Passed,
		Failed:     s.Failed,
		DurationMS: s.Duration.Milliseconds(),
		Cases:      r.cases,
	}
	if len(s.ByKind) > 0 {
		report.ByKind = make(map[string]int, len(s.ByKind))
		for k, n := range s.ByKind {
			report.ByKind[string(k)] = n
		}
	}
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

type junitSuite struct {
	XMLName  xml.Name    `xml:"testsuite"`
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Time     string      `xml:"time,attr"`
	Cases    []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitReporter writes a JUnit XML testsuite on Finish.
type JUnitReporter struct {
	w     io.Writer
	cases []junitCase
}

func NewJUnitReporter(w io.Writer) *JUnitReporter {
	return &JUnitReporter{w: w}
}

func (r *JUnitReporter) Report(o Outcome) error {
	c := junitCase{
		Name:      o.Case.DisplayName(),
		Classname: o.Case.Path,
		Time:      seconds(o.Duration),
		SystemOut: o.Output,
	}
	if o.Failed() {
		f := &junitFailure{Type: "mismatch"}
		if o.Err != nil && o.Case.Expect.errorKind() == "" {
			f.Type = o.Kind().Label()
			f.Message = o.Err.Error()
		}
		if len(o.Mismatches) > 0 {
			if f.Message == "" {
				f.Message = o.Mismatches[0]
			}
			f.Body = strings.Join(o.Mismatches, "\n")
		}
		c.Failure = f
	}
	r.cases = append(r.cases, c)
	return nil
}

func (r *JUnitReporter) Finish(s Summary) error {
	name := s.Suite
	if name == "" {
		name = "falakrun"
	}
	suite := junitSuite{
		Name:     name,
		Tests:    s.Total,
		Failures: s.Failed,
		Time:     seconds(s.Duration),
		Cases:    r.cases,
	}
	if _, err := io.WriteString(r.w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(r.w)
	enc.Indent("", "  ")
	if err := enc.Encode(suite); err != nil {
		return err
	}
	_, err := io.WriteString(r.w, "\n")
	return err
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// NewReporter returns the reporter for format: text, json or junit.
func NewReporter(format string, w io.Writer, color bool) (Reporter, error) {
	switch format {
	case "", "text":
		return NewTextReporter(w, color), nil
	case "json":
		return NewJSONReporter(w), nil
	case "junit":
		return NewJUnitReporter(w), nil
	default:
		return nil, fmt.Errorf("unknown format %q (expected text, json, or junit)", format)
	}
}

// Drain consumes seq, reports each outcome and returns the summary.
func Drain(seq iter.Seq2[Case, Outcome], rep Reporter, suite string) (Summary, error) {
	s := Summary{Suite: suite}
	for _, o := range seq {
		s.Add(o)
		if err := rep.Report(o); err != nil {
			return s, fmt.Errorf("report: %w", err)
		}
	}
	if err := rep.Finish(s); err != nil {
		return s, fmt.Errorf("report: %w", err)
	}
	return s, nil
}
