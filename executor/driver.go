package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caffeineduck/falakrun/hostfunc"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
)

// Result holds the status code and metadata from one Run.
type Result struct {
	Status   int32
	Duration time.Duration
	Error    error
}

// Run instantiates mod against the host functions in registry, calls the
// entry point and returns its status code.
//
// Every failure is returned in Result.Error as a classified *Error; Run never
// panics because of guest behavior and never retries. All instances created
// for the run are closed before it returns.
func (e *Executor) Run(ctx context.Context, mod *Module, registry *hostfunc.Registry, opts ...Option) Result {
	start := time.Now()

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	status, err := e.run(ctx, mod, registry, cfg)
	result := Result{
		Status:   status,
		Duration: time.Since(start),
		Error:    err,
	}

	if err != nil {
		e.logger.Debug("run failed",
			zap.String("entry", cfg.entryPoint),
			zap.String("kind", string(KindOf(err))),
			zap.Duration("duration", result.Duration),
			zap.Error(err))
	} else {
		e.logger.Debug("run finished",
			zap.String("entry", cfg.entryPoint),
			zap.Int32("status", status),
			zap.Duration("duration", result.Duration))
	}

	return result
}

func (e *Executor) run(ctx context.Context, mod *Module, registry *hostfunc.Registry, cfg runConfig) (status int32, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("recovered panic during run", zap.Any("panic", r))
			status, err = 0, newError(KindTrap, "host panic", fmt.Errorf("%v", r))
		}
	}()

	if mod == nil {
		return 0, newError(KindLoad, "", errors.New("nil module"))
	}
	if registry == nil {
		registry, _ = hostfunc.NewRegistry()
	}

	host, err := registry.Compile(ctx, e.runtime)
	if err != nil {
		return 0, newError(KindLink, "", err)
	}
	defer host.Close(context.Background())

	if err := host.Check(mod.compiled); err != nil {
		return 0, newError(KindLink, "", err)
	}
	if err := host.Instantiate(ctx); err != nil {
		return 0, newError(KindLink, "", err)
	}

	moduleConfig := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions()
	if cfg.stdout != nil {
		moduleConfig = moduleConfig.WithStdout(cfg.stdout)
	}
	if cfg.stderr != nil {
		moduleConfig = moduleConfig.WithStderr(cfg.stderr)
	}
	if cfg.stdin != nil {
		moduleConfig = moduleConfig.WithStdin(cfg.stdin)
	}
	fs, err := fsConfig(cfg.mounts)
	if err != nil {
		return 0, newError(KindLink, "mount", err)
	}
	if fs != nil {
		moduleConfig = moduleConfig.WithFSConfig(fs)
	}

	guest, err := e.runtime.InstantiateModule(ctx, mod.compiled, moduleConfig)
	if err != nil {
		return 0, classifyInstantiate(ctx, err, cfg.timeout)
	}
	defer guest.Close(context.Background())

	fn := guest.ExportedFunction(cfg.entryPoint)
	if fn == nil {
		return 0, newError(KindMissingEntryPoint, fmt.Sprintf("no exported function %q", cfg.entryPoint), nil)
	}
	if err := checkEntrySignature(fn.Definition()); err != nil {
		return 0, newError(KindMissingEntryPoint, fmt.Sprintf("export %q", cfg.entryPoint), err)
	}

	results, err := fn.Call(ctx)
	if err != nil {
		return classifyCall(ctx, err, cfg.timeout)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return api.DecodeI32(results[0]), nil
}

// checkEntrySignature accepts () -> i32 and () -> ().
func checkEntrySignature(def api.FunctionDefinition) error {
	params, results := def.ParamTypes(), def.ResultTypes()
	ok := len(params) == 0 &&
		(len(results) == 0 || (len(results) == 1 && results[0] == api.ValueTypeI32))
	if !ok {
		return fmt.Errorf("signature %s, want () -> (i32)", hostfunc.Signature(params, results))
	}
	return nil
}

// classifyCall maps an error from calling the entry point to a status or a
// classified failure. A WASI proc_exit is a normal way to return a status.
func classifyCall(ctx context.Context, err error, timeout time.Duration) (int32, error) {
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		switch exitErr.ExitCode() {
		case sys.ExitCodeDeadlineExceeded:
			return 0, timeoutError(timeout, err)
		case sys.ExitCodeContextCanceled:
			return 0, newError(KindTrap, "canceled", err)
		default:
			return int32(exitErr.ExitCode()), nil
		}
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return 0, timeoutError(timeout, err)
	}
	return 0, newError(KindTrap, "", err)
}

// classifyInstantiate separates faults raised while running the guest's start
// section from genuine linking failures.
func classifyInstantiate(ctx context.Context, err error, timeout time.Duration) error {
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == sys.ExitCodeDeadlineExceeded {
			return timeoutError(timeout, err)
		}
		return newError(KindTrap, "start section exited", err)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timeoutError(timeout, err)
	}
	// wazero has no exported trap type; recovered faults carry a wasm stack trace.
	if strings.Contains(err.Error(), "wasm stack trace") {
		return newError(KindTrap, "start section", err)
	}
	return newError(KindLink, "instantiate", err)
}

func timeoutError(timeout time.Duration, cause error) *Error {
	return newError(KindTimeout, fmt.Sprintf("exceeded %v", timeout), cause)
}
