package executor_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/caffeineduck/falakrun/executor"
	"github.com/caffeineduck/falakrun/hostfunc"
)

func TestLoadMalformedText(t *testing.T) {
	_, err := sharedExec.Load(context.Background(), []byte(`(module (func`))
	if !errors.Is(err, executor.ErrLoad) {
		t.Fatalf("expected load error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "LoadError: text: ") {
		t.Errorf("syntax errors should be reported from the text stage, got %v", err)
	}
}

func TestLoadInvalidModule(t *testing.T) {
	// Well-formed text, but the body leaves an i64 where an i32 is declared.
	_, err := sharedExec.Load(context.Background(), []byte(`(module (func (export "start") (result i32) (i64.const 1)))`))
	if !errors.Is(err, executor.ErrLoad) {
		t.Fatalf("expected load error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "LoadError: validate: ") {
		t.Errorf("type errors should be reported from validation, got %v", err)
	}
}

func TestLoadBinaryPassthrough(t *testing.T) {
	bin, err := executor.Wat2Wasm(factorialWat)
	if err != nil {
		t.Fatalf("wat2wasm: %v", err)
	}
	if !executor.IsBinary(bin) {
		t.Fatal("encoded module should be detected as binary")
	}

	ctx := context.Background()
	mod, err := sharedExec.Load(ctx, bin)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	defer mod.Close(ctx)

	registry, _ := hostfunc.NewRegistry()
	if result := sharedExec.Run(ctx, mod, registry); result.Status != 120 {
		t.Errorf("expected 120, got %d (%v)", result.Status, result.Error)
	}
}

func TestLoadCustomTextDecoder(t *testing.T) {
	var calls int
	exec, err := executor.New(executor.WithTextDecoder(func(text string) ([]byte, error) {
		calls++
		return executor.Wat2Wasm(text)
	}))
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	defer exec.Close()

	ctx := context.Background()
	mod, err := exec.Load(ctx, []byte(factorialWat))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	mod.Close(ctx)

	if calls != 1 {
		t.Errorf("expected decoder to be called once, got %d", calls)
	}
}

func TestModuleImportsExports(t *testing.T) {
	ctx := context.Background()
	mod, err := sharedExec.Load(ctx, []byte(arraysWat))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	defer mod.Close(ctx)

	var imports []string
	for _, k := range mod.Imports() {
		imports = append(imports, k.String())
	}
	want := "falak.new,falak.add,falak.get,falak.size,falak.printi"
	if strings.Join(imports, ",") != want {
		t.Errorf("expected imports %s, got %s", want, strings.Join(imports, ","))
	}

	if exports := mod.Exports(); len(exports) != 1 || exports[0] != "start" {
		t.Errorf("expected [start], got %v", exports)
	}
}

func TestIsBinary(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"\x00asm\x01\x00\x00\x00", true},
		{"(module)", false},
		{"", false},
		{"\x00as", false},
	}
	for _, tt := range tests {
		if got := executor.IsBinary([]byte(tt.in)); got != tt.want {
			t.Errorf("IsBinary(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
