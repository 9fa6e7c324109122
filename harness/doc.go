// Package harness runs an ordered list of WebAssembly test programs and
// reports what each one did.
//
// A [Runner] takes [Case] values one at a time: it reads the source, loads it
// with an [executor.Executor], builds fresh host bindings from a
// [hostfunc.Factory] and calls the entry point. Every failure becomes an
// [Outcome]; nothing a single case does stops the run.
//
//	r := harness.New(exec, nil, harness.WithDefaultTimeout(5*time.Second))
//	for c, o := range r.RunAll(ctx, harness.CasesFromPaths(paths...)) {
//	    fmt.Println(c.Path, o.Status, o.Err)
//	}
//
// Cases can also come from a YAML [Suite] manifest, which adds expectations
// (status, output or an expected failure kind) and shared defaults.
// Reporters render outcomes as text, JSON or JUnit XML.
package harness
