// Package executor loads WebAssembly modules and runs their entry point
// against a set of host functions, isolating every failure.
//
// # Overview
//
// An [Executor] is the engine handle. Create one per harness run and pass it
// wherever modules are loaded or run; it owns a single wazero runtime and an
// optional on-disk compilation cache.
//
//	exec, err := executor.New(executor.WithDiskCache())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
// # Loading
//
// [Executor.Load] accepts WebAssembly text (or an already-encoded binary) and
// returns a validated [Module]. Malformed or invalid input fails with a
// [KindLoad] error and nothing is instantiated.
//
// # Running
//
// [Executor.Run] links the module against a [hostfunc.Registry], calls the
// entry point ("start" unless [WithEntryPoint] says otherwise) and returns a
// [Result]:
//
//	falak := hostfunc.NewFalak(hostfunc.FalakConfig{Stdout: os.Stdout})
//	registry, _ := hostfunc.NewRegistry(hostfunc.WithBindings(falak.Bindings()...))
//	result := exec.Run(ctx, mod, registry, executor.WithTimeout(5*time.Second))
//	if result.Error != nil {
//	    fmt.Println(executor.KindOf(result.Error), result.Error)
//	}
//	fmt.Println("exit code", result.Status)
//
// Failures are classified as [KindLink], [KindMissingEntryPoint], [KindTrap]
// or [KindTimeout]. Use errors.Is with [ErrTrap] and friends to match them.
package executor
