package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caffeineduck/falakrun/executor"
	"github.com/caffeineduck/falakrun/hostfunc"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// Suite is a named, ordered list of cases with shared defaults.
type Suite struct {
	Name    string   `yaml:"name,omitempty" json:"name,omitempty"`
	Entry   string   `yaml:"entry,omitempty" json:"entry,omitempty" jsonschema:"description=Default entry point for every case"`
	Timeout string   `yaml:"timeout,omitempty" json:"timeout,omitempty" validate:"omitempty,duration" jsonschema:"description=Default per-case timeout such as 30s"`
	Bundles []string `yaml:"bundles,omitempty" json:"bundles,omitempty" validate:"unique,dive,oneof=falak wasi assemblyscript" jsonschema:"uniqueItems=true,enum=falak,enum=wasi,enum=assemblyscript"`
	Mounts  []string `yaml:"mounts,omitempty" json:"mounts,omitempty" validate:"dive,mount" jsonschema:"description=WASI directory mounts as virtual:host:mode"`
	Cases   []Case   `yaml:"cases" json:"cases" validate:"required,min=1,dive"`
}

// DefaultFiles is the fixed case list used when no paths or suite are given.
var DefaultFiles = []string{
	"Test_Files/001_hello.wat",
	"Test_Files/002_binary.wat",
	"Test_Files/003_palindrome.wat",
	"Test_Files/004_factorial.wat",
	"Test_Files/005_arrays.wat",
	"Test_Files/006_next_day.wat",
	"Test_Files/007_literals.wat",
	"Test_Files/008_vars.wat",
	"Test_Files/009_operators.wat",
	"Test_Files/010_breaks.wat",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})
	v.RegisterValidation("mount", func(fl validator.FieldLevel) bool {
		_, err := executor.ParseMount(fl.Field().String())
		return err == nil
	})
	return v
}

// DefaultSuite returns the fixed case list rooted at dir.
func DefaultSuite(dir string) *Suite {
	paths := make([]string, len(DefaultFiles))
	for i, f := range DefaultFiles {
		paths[i] = filepath.Join(dir, f)
	}
	return &Suite{Name: "falak", Cases: CasesFromPaths(paths...)}
}

// LoadSuite reads and validates a YAML manifest. Relative case and mount
// paths are resolved against the manifest's directory.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}
	s, err := ParseSuite(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range s.Cases {
		if !filepath.IsAbs(s.Cases[i].Path) {
			s.Cases[i].Path = filepath.Join(dir, s.Cases[i].Path)
		}
	}
	for i, spec := range s.Mounts {
		m, _ := executor.ParseMount(spec)
		if !filepath.IsAbs(m.HostPath) {
			m.HostPath = filepath.Join(dir, m.HostPath)
			s.Mounts[i] = m.String()
		}
	}
	if s.Name == "" {
		base := filepath.Base(path)
		s.Name = base[:len(base)-len(filepath.Ext(base))]
	}
	return s, nil
}

// ParseSuite decodes and validates a YAML manifest. Unknown fields are rejected.
func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse suite: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the suite's structure and field values.
func (s *Suite) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid suite: %w", err)
	}
	return nil
}

// Factory returns the host binding factory for the suite's bundles.
func (s *Suite) Factory() (hostfunc.Factory, error) {
	bundles := make([]hostfunc.Bundle, 0, len(s.Bundles))
	for _, name := range s.Bundles {
		b, err := hostfunc.ParseBundle(name)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return hostfunc.NewFactory(bundles...)
}

// RunnerOptions returns the suite-wide defaults as runner options.
func (s *Suite) RunnerOptions() []RunnerOption {
	var opts []RunnerOption
	if s.Entry != "" {
		opts = append(opts, WithDefaultEntry(s.Entry))
	}
	if s.Timeout != "" {
		if d, err := time.ParseDuration(s.Timeout); err == nil {
			opts = append(opts, WithDefaultTimeout(d))
		}
	}
	for _, spec := range s.Mounts {
		if m, err := executor.ParseMount(spec); err == nil {
			opts = append(opts, WithMounts(m))
		}
	}
	return opts
}

// SuiteSchema returns the JSON Schema of the manifest format.
func SuiteSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&Suite{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
