package executor

import (
	"io"
	"time"

	"go.uber.org/zap"
)

// DefaultEntryPoint is the export every Falak test program defines.
const DefaultEntryPoint = "start"

// DefaultTimeout bounds a single Run when no timeout is given.
const DefaultTimeout = 30 * time.Second

// Option configures a single Run.
type Option func(*runConfig)

type runConfig struct {
	entryPoint string
	timeout    time.Duration
	stdout     io.Writer
	stderr     io.Writer
	stdin      io.Reader
	mounts     []Mount
}

func defaultRunConfig() runConfig {
	return runConfig{
		entryPoint: DefaultEntryPoint,
		timeout:    DefaultTimeout,
	}
}

// WithEntryPoint sets the exported function Run invokes.
func WithEntryPoint(name string) Option {
	return func(c *runConfig) {
		if name != "" {
			c.entryPoint = name
		}
	}
}

// WithTimeout sets the maximum wall-clock execution time. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// WithStdout sets the guest's WASI stdout.
func WithStdout(w io.Writer) Option {
	return func(c *runConfig) {
		c.stdout = w
	}
}

// WithStderr sets the guest's WASI stderr.
func WithStderr(w io.Writer) Option {
	return func(c *runConfig) {
		c.stderr = w
	}
}

// WithStdin sets the guest's WASI stdin.
func WithStdin(r io.Reader) Option {
	return func(c *runConfig) {
		c.stdin = r
	}
}

// ExecutorOption configures the Executor at creation time.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	diskCache        bool
	cacheDir         string
	memoryLimitPages uint32 // Max memory pages (each page = 64KB), 0 = default (4GB)
	decode           TextDecoder
	logger           *zap.Logger
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{
		decode: Wat2Wasm,
		logger: zap.NewNop(),
	}
}

// WithDiskCache enables persistent compilation cache for faster CLI startup.
// Optionally provide a custom directory; otherwise uses ~/.cache/falakrun or XDG_CACHE_HOME/falakrun.
//
// Examples:
//
//	executor.New(executor.WithDiskCache())            // default dir
//	executor.New(executor.WithDiskCache("/tmp/cache")) // custom dir
func WithDiskCache(dir ...string) ExecutorOption {
	return func(c *executorConfig) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithMemoryLimit sets the maximum memory available to guest modules.
// Each page is 64KB. Examples:
//   - WithMemoryLimit(16) = 1MB max
//   - WithMemoryLimit(256) = 16MB max
//
// Default is 0 (no limit, up to 4GB).
func WithMemoryLimit(pages uint32) ExecutorOption {
	return func(c *executorConfig) {
		c.memoryLimitPages = pages
	}
}

// WithTextDecoder replaces the text-format decoder used by Load.
func WithTextDecoder(d TextDecoder) ExecutorOption {
	return func(c *executorConfig) {
		if d != nil {
			c.decode = d
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) ExecutorOption {
	return func(c *executorConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Memory limit constants for convenience.
const (
	MemoryLimit1MB   uint32 = 16    // 1 MB
	MemoryLimit16MB  uint32 = 256   // 16 MB
	MemoryLimit64MB  uint32 = 1024  // 64 MB
	MemoryLimit256MB uint32 = 4096  // 256 MB
	MemoryLimit1GB   uint32 = 16384 // 1 GB
)
