package hostfunc

import (
	"fmt"
	"io"

	"github.com/tetratelabs/wazero/imports/assemblyscript"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Bundle names a predefined set of host functions.
type Bundle string

const (
	// BundleFalak provides the Falak runtime library under "falak".
	BundleFalak Bundle = "falak"
	// BundleWASI provides wasi_snapshot_preview1.
	BundleWASI Bundle = "wasi"
	// BundleAssemblyScript provides the AssemblyScript "env" imports (abort, trace, seed).
	BundleAssemblyScript Bundle = "assemblyscript"
)

// Bundles lists every known bundle name.
var Bundles = []Bundle{BundleFalak, BundleWASI, BundleAssemblyScript}

// Env is the per-test-case I/O the host functions are bound to.
type Env struct {
	Stdout  io.Writer
	Stdin   io.Reader
	Handles []HandleOption
}

// Factory builds a fresh Registry for each test case so no host state
// carries over from one case to the next.
type Factory func(env Env) (*Registry, error)

// ParseBundle validates a bundle name.
func ParseBundle(name string) (Bundle, error) {
	for _, b := range Bundles {
		if string(b) == name {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown bundle %q (expected falak, wasi, or assemblyscript)", name)
}

// NewFactory returns a Factory that registers the given bundles.
// With no bundles, only the Falak runtime library is registered.
func NewFactory(bundles ...Bundle) (Factory, error) {
	if len(bundles) == 0 {
		bundles = []Bundle{BundleFalak}
	}
	seen := make(map[Bundle]bool)
	for _, b := range bundles {
		if _, err := ParseBundle(string(b)); err != nil {
			return nil, err
		}
		if seen[b] {
			return nil, fmt.Errorf("bundle %q listed twice", b)
		}
		seen[b] = true
	}

	return func(env Env) (*Registry, error) {
		var opts []Option
		for _, b := range bundles {
			switch b {
			case BundleFalak:
				falak := NewFalak(FalakConfig{Stdout: env.Stdout, Stdin: env.Stdin, Handles: env.Handles})
				opts = append(opts, WithBindings(falak.Bindings()...))
			case BundleWASI:
				opts = append(opts, WithExporter(wasi_snapshot_preview1.ModuleName, wasi_snapshot_preview1.NewFunctionExporter()))
			case BundleAssemblyScript:
				opts = append(opts, WithExporter("env", assemblyscript.NewFunctionExporter()))
			}
		}
		return NewRegistry(opts...)
	}, nil
}
