// Package falakrun is a regression harness for WebAssembly programs produced
// by the Falak compiler.
//
// # Overview
//
// Each test program is a WebAssembly text module that imports the Falak
// runtime library (module "falak": printi, printc, prints, println, readi,
// reads, new, size, add, get, set) and exports a "start" function returning
// an i32 status. falakrun loads every program, links it, calls the entry
// point and reports the status or a classified failure. One broken program
// never stops the run.
//
// # Basic Usage
//
//	exec, _ := executor.New()
//	defer exec.Close()
//
//	runner := harness.New(exec, nil)
//	for c, o := range runner.RunAll(ctx, harness.CasesFromPaths("Test_Files/004_factorial.wat")) {
//	    fmt.Println(c.Path, o.Status, o.Err)
//	}
//
// # Lower Level
//
//	mod, err := exec.Load(ctx, source)
//	falak := hostfunc.NewFalak(hostfunc.FalakConfig{Stdout: os.Stdout})
//	registry, _ := hostfunc.NewRegistry(hostfunc.WithBindings(falak.Bindings()...))
//	result := exec.Run(ctx, mod, registry, executor.WithTimeout(5*time.Second))
//
// See the [executor], [hostfunc] and [harness] packages for detailed API
// documentation, and cmd/falakrun for the command-line tool.
package falakrun
