package harness

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/caffeineduck/falakrun/executor"
)

// Case is one test program and what the run should observe.
type Case struct {
	Name    string       `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"description=Display name; defaults to the file name"`
	Path    string       `yaml:"path" json:"path" validate:"required" jsonschema:"description=Path to a .wat or .wasm file"`
	Entry   string       `yaml:"entry,omitempty" json:"entry,omitempty" jsonschema:"description=Exported function to call"`
	Timeout string       `yaml:"timeout,omitempty" json:"timeout,omitempty" validate:"omitempty,duration" jsonschema:"description=Wall-clock limit such as 5s"`
	Stdin   string       `yaml:"stdin,omitempty" json:"stdin,omitempty" jsonschema:"description=Text the guest reads from standard input"`
	Expect  *Expectation `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Expectation describes the observable result a case must produce.
// Unset fields are not checked.
type Expectation struct {
	Status *int32  `yaml:"status,omitempty" json:"status,omitempty"`
	Output *string `yaml:"output,omitempty" json:"output,omitempty"`
	Error  string  `yaml:"error,omitempty" json:"error,omitempty" validate:"omitempty,oneof=source-read load link missing-entry-point trap timeout" jsonschema:"enum=source-read,enum=load,enum=link,enum=missing-entry-point,enum=trap,enum=timeout"`
}

// CasesFromPaths builds cases with no expectations, in the order given.
func CasesFromPaths(paths ...string) []Case {
	cases := make([]Case, len(paths))
	for i, p := range paths {
		cases[i] = Case{Path: p}
	}
	return cases
}

// DisplayName returns Name, or the file name without extension.
func (c Case) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	base := filepath.Base(c.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (c Case) timeout() (time.Duration, bool, error) {
	if c.Timeout == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, false, err
	}
	return d, true, nil
}

func (e *Expectation) errorKind() executor.Kind {
	if e == nil {
		return ""
	}
	return executor.Kind(e.Error)
}
