package hostfunc

import (
	"fmt"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Key identifies an import by module and function name.
type Key struct {
	Module string
	Name   string
}

func (k Key) String() string {
	return k.Module + "." + k.Name
}

// Binding is a single host function a guest module may import.
type Binding struct {
	Key
	Params  []api.ValueType
	Results []api.ValueType
	Fn      api.GoModuleFunc
}

// Exporter adds a whole library of functions to a host module.
// wasi_snapshot_preview1 and assemblyscript function exporters satisfy it.
type Exporter interface {
	ExportFunctions(builder wazero.HostModuleBuilder)
}

// Registry is an immutable set of host bindings, grouped by import module.
// Build one per test case with NewRegistry.
type Registry struct {
	bindings  map[Key]Binding
	keys      []Key
	exporters map[string]Exporter
	modules   []string
}

// Option configures a Registry under construction.
type Option func(*registryBuilder)

type registryBuilder struct {
	bindings  map[Key]Binding
	exporters map[string]Exporter
	errs      []error
}

// NewRegistry creates a Registry from the given options.
// Returns an error if a key is registered twice or a binding is incomplete.
func NewRegistry(opts ...Option) (*Registry, error) {
	b := &registryBuilder{
		bindings:  make(map[Key]Binding),
		exporters: make(map[string]Exporter),
	}
	for _, opt := range opts {
		opt(b)
	}
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}

	keys := make([]Key, 0, len(b.bindings))
	seen := make(map[string]bool)
	var modules []string
	for k := range b.bindings {
		keys = append(keys, k)
		if !seen[k.Module] {
			seen[k.Module] = true
			modules = append(modules, k.Module)
		}
	}
	for m := range b.exporters {
		if !seen[m] {
			seen[m] = true
			modules = append(modules, m)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Module != keys[j].Module {
			return keys[i].Module < keys[j].Module
		}
		return keys[i].Name < keys[j].Name
	})
	sort.Strings(modules)

	return &Registry{
		bindings:  b.bindings,
		keys:      keys,
		exporters: b.exporters,
		modules:   modules,
	}, nil
}

// WithBinding registers a single host function.
func WithBinding(binding Binding) Option {
	return func(b *registryBuilder) {
		if err := b.add(binding); err != nil {
			b.errs = append(b.errs, err)
		}
	}
}

// WithBindings registers a group of host functions, such as a runtime library.
func WithBindings(bindings ...Binding) Option {
	return func(b *registryBuilder) {
		for _, binding := range bindings {
			if err := b.add(binding); err != nil {
				b.errs = append(b.errs, err)
			}
		}
	}
}

// WithExporter attaches a function library to the named import module.
func WithExporter(module string, e Exporter) Option {
	return func(b *registryBuilder) {
		if module == "" {
			b.errs = append(b.errs, fmt.Errorf("exporter module name cannot be empty"))
			return
		}
		if _, exists := b.exporters[module]; exists {
			b.errs = append(b.errs, fmt.Errorf("duplicate exporter for module %q", module))
			return
		}
		b.exporters[module] = e
	}
}

func (b *registryBuilder) add(binding Binding) error {
	if binding.Module == "" || binding.Name == "" {
		return fmt.Errorf("binding %q: module and name are required", binding.Key)
	}
	if binding.Fn == nil {
		return fmt.Errorf("binding %s: nil function", binding.Key)
	}
	if _, exists := b.bindings[binding.Key]; exists {
		return fmt.Errorf("duplicate binding: %s", binding.Key)
	}
	b.bindings[binding.Key] = binding
	return nil
}

// Lookup returns the binding registered for module.name.
func (r *Registry) Lookup(module, name string) (Binding, bool) {
	b, ok := r.bindings[Key{Module: module, Name: name}]
	return b, ok
}

// Keys returns the registered binding keys sorted by module, then name.
// Functions contributed by exporters are not included.
func (r *Registry) Keys() []Key {
	keys := make([]Key, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Modules returns the sorted import-module names this registry provides.
func (r *Registry) Modules() []string {
	modules := make([]string, len(r.modules))
	copy(modules, r.modules)
	return modules
}

// Len returns the number of explicit bindings.
func (r *Registry) Len() int {
	return len(r.bindings)
}
