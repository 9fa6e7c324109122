package executor

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/caffeineduck/falakrun/hostfunc"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

// Module is a validated module ready for instantiation.
type Module struct {
	compiled wazero.CompiledModule
}

// Load converts source into a validated Module. Text-format sources are
// encoded first; binary modules are passed straight to the engine.
//
// Syntax and validation failures are returned as a KindLoad *Error carrying
// the decoder's or engine's message unchanged.
func (e *Executor) Load(ctx context.Context, source []byte) (*Module, error) {
	start := time.Now()

	if e.isClosed() {
		return nil, newError(KindLoad, "", errors.New("executor closed"))
	}

	bin := source
	if !IsBinary(source) {
		var err error
		bin, err = e.decode(string(source))
		if err != nil {
			return nil, newError(KindLoad, "text", err)
		}
	}

	compiled, err := e.runtime.CompileModule(ctx, bin)
	if err != nil {
		return nil, newError(KindLoad, "validate", err)
	}

	e.logger.Debug("module loaded",
		zap.Int("source_bytes", len(source)),
		zap.Int("binary_bytes", len(bin)),
		zap.Duration("duration", time.Since(start)))

	return &Module{compiled: compiled}, nil
}

// Imports returns the functions the module imports, in declaration order.
func (m *Module) Imports() []hostfunc.Key {
	defs := m.compiled.ImportedFunctions()
	keys := make([]hostfunc.Key, 0, len(defs))
	for _, def := range defs {
		module, name, _ := def.Import()
		keys = append(keys, hostfunc.Key{Module: module, Name: name})
	}
	return keys
}

// Exports returns the sorted names of exported functions.
func (m *Module) Exports() []string {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases the compiled module.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

func (e *Executor) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
