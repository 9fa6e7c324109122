// Package hostfunc provides the host functions a guest WebAssembly module may import.
//
// A guest compiled from Falak has no I/O or dynamic storage of its own. It
// imports them from the "falak" module, which this package implements on the
// Go side. Other libraries (WASI, AssemblyScript) can be attached as bundles.
//
// # Registry
//
// A [Registry] is an immutable mapping from (module, name) to a [Binding]. It
// is built once per test case, so host state never leaks between cases:
//
//	falak := hostfunc.NewFalak(hostfunc.FalakConfig{Stdout: &out})
//	registry, err := hostfunc.NewRegistry(
//	    hostfunc.WithBindings(falak.Bindings()...),
//	    hostfunc.WithBinding(hostfunc.Binding{
//	        Key:     hostfunc.Key{Module: "env", Name: "clock"},
//	        Results: []api.ValueType{api.ValueTypeI64},
//	        Fn:      clock,
//	    }),
//	)
//
// Use a [Factory] from [NewFactory] to get that per-case construction for free.
//
// # Linking
//
// [Registry.Compile] turns the registry into wazero host modules. Before any
// instantiation, [HostModules.Check] compares the guest's declared imports
// against those modules and returns an [ImportError] naming every missing or
// mismatched function.
//
// # Falak runtime
//
// [Falak] implements printi, printc, prints, println, readi, reads, new, size,
// add, get and set. Lists are referred to by integer handles held in a
// [HandleStore]. A runtime error inside one of these functions traps the guest.
package hostfunc
