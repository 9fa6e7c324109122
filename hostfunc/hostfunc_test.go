package hostfunc

import (
	"context"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero/api"
)

func noop(context.Context, api.Module, []uint64) {}

func binding(module, name string) Binding {
	return Binding{
		Key:     Key{Module: module, Name: name},
		Params:  []api.ValueType{api.ValueTypeI32},
		Results: []api.ValueType{api.ValueTypeI32},
		Fn:      noop,
	}
}

func TestRegistryLookup(t *testing.T) {
	r, err := NewRegistry(WithBinding(binding("env", "f")))
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	b, ok := r.Lookup("env", "f")
	if !ok {
		t.Fatal("expected env.f to be registered")
	}
	if b.Name != "f" || b.Module != "env" {
		t.Errorf("unexpected binding key %v", b.Key)
	}

	if _, ok := r.Lookup("env", "g"); ok {
		t.Error("env.g should not be registered")
	}
	if _, ok := r.Lookup("other", "f"); ok {
		t.Error("other.f should not be registered")
	}
}

func TestRegistryKeysSorted(t *testing.T) {
	r, err := NewRegistry(WithBindings(
		binding("zeta", "a"),
		binding("alpha", "z"),
		binding("alpha", "b"),
	))
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	var got []string
	for _, k := range r.Keys() {
		got = append(got, k.String())
	}
	want := "alpha.b,alpha.z,zeta.a"
	if strings.Join(got, ",") != want {
		t.Errorf("expected %s, got %s", want, strings.Join(got, ","))
	}

	if mods := strings.Join(r.Modules(), ","); mods != "alpha,zeta" {
		t.Errorf("expected modules alpha,zeta, got %s", mods)
	}
	if r.Len() != 3 {
		t.Errorf("expected 3 bindings, got %d", r.Len())
	}
}

func TestRegistryKeysIsCopy(t *testing.T) {
	r, _ := NewRegistry(WithBinding(binding("env", "f")))
	keys := r.Keys()
	keys[0].Name = "mutated"

	if _, ok := r.Lookup("env", "f"); !ok {
		t.Error("mutating Keys() result changed the registry")
	}
	if r.Keys()[0].Name != "f" {
		t.Error("Keys() should return a copy")
	}
}

func TestRegistryDuplicate(t *testing.T) {
	_, err := NewRegistry(
		WithBinding(binding("env", "f")),
		WithBinding(binding("env", "f")),
	)
	if err == nil {
		t.Fatal("expected duplicate binding error")
	}
	if !strings.Contains(err.Error(), "duplicate binding: env.f") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegistryIncompleteBinding(t *testing.T) {
	tests := []struct {
		name    string
		binding Binding
	}{
		{"no module", Binding{Key: Key{Name: "f"}, Fn: noop}},
		{"no name", Binding{Key: Key{Module: "env"}, Fn: noop}},
		{"nil func", Binding{Key: Key{Module: "env", Name: "f"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(WithBinding(tt.binding)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRegistryDuplicateExporter(t *testing.T) {
	f, _ := NewFactory(BundleWASI)
	r, err := f(Env{})
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if mods := r.Modules(); len(mods) != 1 || mods[0] != "wasi_snapshot_preview1" {
		t.Errorf("unexpected modules %v", mods)
	}

	_, err = NewRegistry(
		WithExporter("env", nil),
		WithExporter("env", nil),
	)
	if err == nil {
		t.Error("expected duplicate exporter error")
	}
}

// =============================================================================
// FACTORY
// =============================================================================

func TestFactoryDefaultsToFalak(t *testing.T) {
	f, err := NewFactory()
	if err != nil {
		t.Fatalf("NewFactory failed: %v", err)
	}
	r, err := f(Env{})
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if r.Len() != 11 {
		t.Errorf("expected 11 falak bindings, got %d", r.Len())
	}
	for _, name := range []string{"printi", "printc", "prints", "println", "readi", "reads", "new", "size", "add", "get", "set"} {
		if _, ok := r.Lookup(FalakModule, name); !ok {
			t.Errorf("missing falak.%s", name)
		}
	}
}

func TestFactoryFreshStatePerCall(t *testing.T) {
	f, _ := NewFactory(BundleFalak)
	r1, _ := f(Env{})
	r2, _ := f(Env{})

	newFn, _ := r1.Lookup(FalakModule, "new")
	stack := []uint64{api.EncodeI32(3)}
	newFn.Fn(context.Background(), nil, stack)

	sizeFn, _ := r2.Lookup(FalakModule, "size")
	defer func() {
		if recover() == nil {
			t.Error("handle allocated through r1 should not exist in r2")
		}
	}()
	sizeFn.Fn(context.Background(), nil, []uint64{stack[0]})
}

func TestFactoryRejectsUnknownBundle(t *testing.T) {
	if _, err := NewFactory("lua"); err == nil {
		t.Error("expected unknown bundle error")
	}
	if _, err := NewFactory(BundleFalak, BundleFalak); err == nil {
		t.Error("expected duplicate bundle error")
	}
}

func TestParseBundle(t *testing.T) {
	for _, b := range Bundles {
		got, err := ParseBundle(string(b))
		if err != nil || got != b {
			t.Errorf("ParseBundle(%q) = %q, %v", b, got, err)
		}
	}
	if _, err := ParseBundle("FALAK"); err == nil {
		t.Error("bundle names are case-sensitive")
	}
}
