package hostfunc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// HostModules holds the compiled host modules for one Registry.
type HostModules struct {
	runtime   wazero.Runtime
	names     []string
	compiled  map[string]wazero.CompiledModule
	instances []api.Module
}

// Compile builds one wazero host module per import-module name in the registry.
// The result must be closed when the test case completes.
func (r *Registry) Compile(ctx context.Context, rt wazero.Runtime) (*HostModules, error) {
	h := &HostModules{
		runtime:  rt,
		compiled: make(map[string]wazero.CompiledModule, len(r.modules)),
	}

	for _, module := range r.modules {
		builder := rt.NewHostModuleBuilder(module)
		for _, k := range r.keys {
			if k.Module != module {
				continue
			}
			b := r.bindings[k]
			builder.NewFunctionBuilder().
				WithGoModuleFunction(b.Fn, b.Params, b.Results).
				WithName(b.Name).
				Export(b.Name)
		}
		if e, ok := r.exporters[module]; ok {
			e.ExportFunctions(builder)
		}

		compiled, err := builder.Compile(ctx)
		if err != nil {
			h.Close(ctx)
			return nil, fmt.Errorf("compile host module %q: %w", module, err)
		}
		h.names = append(h.names, module)
		h.compiled[module] = compiled
	}

	return h, nil
}

// ImportProblem describes one guest import the host cannot satisfy.
type ImportProblem struct {
	Key
	Reason string
}

// ImportError lists every unsatisfied or mismatched guest import.
type ImportError struct {
	Problems []ImportProblem
}

func (e *ImportError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Key.String() + ": " + p.Reason
	}
	return "unsatisfied imports: " + strings.Join(parts, "; ")
}

// Check verifies that every function and memory the guest imports is exported
// by a host module with an identical signature.
func (h *HostModules) Check(guest wazero.CompiledModule) error {
	var problems []ImportProblem

	for _, def := range guest.ImportedFunctions() {
		module, name, _ := def.Import()
		key := Key{Module: module, Name: name}

		host, ok := h.compiled[module]
		if !ok {
			problems = append(problems, ImportProblem{Key: key, Reason: fmt.Sprintf("module %q not provided", module)})
			continue
		}
		export, ok := host.ExportedFunctions()[name]
		if !ok {
			problems = append(problems, ImportProblem{Key: key, Reason: "function not provided"})
			continue
		}
		if !slices.Equal(def.ParamTypes(), export.ParamTypes()) || !slices.Equal(def.ResultTypes(), export.ResultTypes()) {
			problems = append(problems, ImportProblem{
				Key: key,
				Reason: fmt.Sprintf("signature %s, host provides %s",
					Signature(def.ParamTypes(), def.ResultTypes()),
					Signature(export.ParamTypes(), export.ResultTypes())),
			})
		}
	}

	for _, def := range guest.ImportedMemories() {
		module, name, _ := def.Import()
		problems = append(problems, ImportProblem{
			Key:    Key{Module: module, Name: name},
			Reason: "memory imports are not provided by the host",
		})
	}

	if len(problems) > 0 {
		return &ImportError{Problems: problems}
	}
	return nil
}

// Instantiate instantiates every host module under its import-module name.
func (h *HostModules) Instantiate(ctx context.Context) error {
	for _, name := range h.names {
		mod, err := h.runtime.InstantiateModule(ctx, h.compiled[name], wazero.NewModuleConfig().WithName(name))
		if err != nil {
			return fmt.Errorf("instantiate host module %q: %w", name, err)
		}
		h.instances = append(h.instances, mod)
	}
	return nil
}

// Close releases host instances and compiled host modules.
func (h *HostModules) Close(ctx context.Context) error {
	var errs []error
	for i := len(h.instances) - 1; i >= 0; i-- {
		if err := h.instances[i].Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	h.instances = nil
	for _, name := range h.names {
		if err := h.compiled[name].Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	h.names = nil
	return errors.Join(errs...)
}

// Signature formats a function type like "(i32, i32) -> i32".
func Signature(params, results []api.ValueType) string {
	format := func(types []api.ValueType) string {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = api.ValueTypeName(t)
		}
		return strings.Join(names, ", ")
	}
	return "(" + format(params) + ") -> (" + format(results) + ")"
}
