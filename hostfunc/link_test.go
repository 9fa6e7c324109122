package hostfunc

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/wasmerio/wasmer-go/wasmer"
)

func compileGuest(t *testing.T, rt wazero.Runtime, wat string) wazero.CompiledModule {
	t.Helper()
	bin, err := wasmer.Wat2Wasm(wat)
	if err != nil {
		t.Fatalf("wat2wasm: %v", err)
	}
	compiled, err := rt.CompileModule(context.Background(), bin)
	if err != nil {
		t.Fatalf("compile guest: %v", err)
	}
	t.Cleanup(func() { compiled.Close(context.Background()) })
	return compiled
}

func falakRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(WithBindings(NewFalak(FalakConfig{}).Bindings()...))
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return r
}

func TestCheckSatisfied(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	guest := compileGuest(t, rt, `(module
  (import "falak" "printi" (func (param i32) (result i32)))
  (import "falak" "println" (func (result i32)))
  (func (export "start") (result i32) (i32.const 0)))`)

	host, err := falakRegistry(t).Compile(ctx, rt)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	defer host.Close(ctx)

	if err := host.Check(guest); err != nil {
		t.Errorf("expected imports to be satisfied, got %v", err)
	}
}

func TestCheckReportsEveryProblem(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	guest := compileGuest(t, rt, `(module
  (import "falak" "printx" (func (param i32) (result i32)))
  (import "falak" "get" (func (param i32) (result i32)))
  (import "libc" "malloc" (func (param i32) (result i32)))
  (func (export "start") (result i32) (i32.const 0)))`)

	host, err := falakRegistry(t).Compile(ctx, rt)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	defer host.Close(ctx)

	err = host.Check(guest)
	var importErr *ImportError
	if !errors.As(err, &importErr) {
		t.Fatalf("expected *ImportError, got %v", err)
	}
	if len(importErr.Problems) != 3 {
		t.Fatalf("expected 3 problems, got %d: %v", len(importErr.Problems), err)
	}

	msg := err.Error()
	for _, want := range []string{
		"falak.printx: function not provided",
		"falak.get: signature (i32) -> (i32), host provides (i32, i32) -> (i32)",
		`libc.malloc: module "libc" not provided`,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestCheckMemoryImport(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	guest := compileGuest(t, rt, `(module (import "env" "memory" (memory 1)))`)

	host, err := falakRegistry(t).Compile(ctx, rt)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	defer host.Close(ctx)

	if err := host.Check(guest); err == nil || !strings.Contains(err.Error(), "env.memory") {
		t.Errorf("expected memory import problem, got %v", err)
	}
}

func TestInstantiateAndCall(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	var calls int32
	r, err := NewRegistry(WithBinding(Binding{
		Key:     Key{Module: "env", Name: "bump"},
		Params:  []api.ValueType{api.ValueTypeI32},
		Results: []api.ValueType{api.ValueTypeI32},
		Fn: func(_ context.Context, _ api.Module, stack []uint64) {
			calls++
			stack[0] = api.EncodeI32(api.DecodeI32(stack[0]) + 1)
		},
	}))
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	guest := compileGuest(t, rt, `(module
  (import "env" "bump" (func $bump (param i32) (result i32)))
  (func (export "start") (result i32) (call $bump (i32.const 41))))`)

	host, err := r.Compile(ctx, rt)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	defer host.Close(ctx)

	if err := host.Check(guest); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if err := host.Instantiate(ctx); err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}

	mod, err := rt.InstantiateModule(ctx, guest, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		t.Fatalf("instantiate guest: %v", err)
	}
	defer mod.Close(ctx)

	results, err := mod.ExportedFunction("start").Call(ctx)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if api.DecodeI32(results[0]) != 42 || calls != 1 {
		t.Errorf("expected 42 after one call, got %d after %d calls", api.DecodeI32(results[0]), calls)
	}
}

func TestHostModulesReusableName(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	// The same import-module name must be usable again once the previous
	// host modules are closed.
	for i := range 3 {
		host, err := falakRegistry(t).Compile(ctx, rt)
		if err != nil {
			t.Fatalf("round %d: Compile failed: %v", i, err)
		}
		if err := host.Instantiate(ctx); err != nil {
			t.Fatalf("round %d: Instantiate failed: %v", i, err)
		}
		if err := host.Close(ctx); err != nil {
			t.Fatalf("round %d: Close failed: %v", i, err)
		}
	}
}

func TestSignature(t *testing.T) {
	got := Signature([]api.ValueType{api.ValueTypeI32, api.ValueTypeI64}, nil)
	if got != "(i32, i64) -> ()" {
		t.Errorf("unexpected signature %q", got)
	}
}
