package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

// Executor is the engine handle shared by every test case of a run.
// It owns one wazero runtime and, optionally, a compilation cache.
type Executor struct {
	runtime wazero.Runtime
	cache   wazero.CompilationCache
	decode  TextDecoder
	logger  *zap.Logger

	// runMu serializes Run: host modules are registered in the runtime by
	// import-module name, so two runs cannot bind "falak" at once.
	runMu  sync.Mutex
	mu     sync.Mutex
	closed bool
}

// New creates an Executor.
func New(opts ...ExecutorOption) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()

	var cache wazero.CompilationCache
	var err error

	if cfg.diskCache {
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			cacheDir = DefaultCacheDir()
		}
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	e := &Executor{
		runtime: wazero.NewRuntimeWithConfig(ctx, rtConfig),
		cache:   cache,
		decode:  cfg.decode,
		logger:  cfg.logger,
	}

	e.logger.Debug("executor ready",
		zap.Bool("disk_cache", cache != nil),
		zap.Uint32("memory_limit_pages", cfg.memoryLimitPages))

	return e, nil
}

// Runtime returns the underlying wazero runtime.
func (e *Executor) Runtime() wazero.Runtime {
	return e.runtime
}

// Close releases all resources held by the Executor.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	ctx := context.Background()

	var errs []error
	if err := e.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if e.cache != nil {
		if err := e.cache.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// DefaultCacheDir is where WithDiskCache stores compiled modules when no
// directory is given.
func DefaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "falakrun")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "falakrun")
	}
	return filepath.Join(os.TempDir(), "falakrun-cache")
}
