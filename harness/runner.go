package harness

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/caffeineduck/falakrun/executor"
	"github.com/caffeineduck/falakrun/hostfunc"
	"go.uber.org/zap"
)

// Runner drives an ordered list of cases through an Executor.
type Runner struct {
	exec    *executor.Executor
	factory hostfunc.Factory
	echo    io.Writer
	logger  *zap.Logger
	entry   string
	timeout time.Duration
	baseDir string
	handles []hostfunc.HandleOption
	mounts  []executor.Mount
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithEcho mirrors guest output to w as it is written.
func WithEcho(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.echo = w
	}
}

// WithLogger sets the logger for per-case diagnostics.
func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDefaultEntry sets the entry point for cases that do not name one.
func WithDefaultEntry(name string) RunnerOption {
	return func(r *Runner) {
		if name != "" {
			r.entry = name
		}
	}
}

// WithDefaultTimeout sets the timeout for cases that do not set one.
func WithDefaultTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithBaseDir resolves relative case paths against dir.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithHandleLimits bounds the Falak list store of every case.
func WithHandleLimits(opts ...hostfunc.HandleOption) RunnerOption {
	return func(r *Runner) {
		r.handles = append(r.handles, opts...)
	}
}

// WithMounts exposes host directories to WASI guests in every case.
func WithMounts(mounts ...executor.Mount) RunnerOption {
	return func(r *Runner) {
		r.mounts = append(r.mounts, mounts...)
	}
}

// New creates a Runner. A nil factory registers only the Falak runtime library.
func New(exec *executor.Executor, factory hostfunc.Factory, opts ...RunnerOption) *Runner {
	if factory == nil {
		factory, _ = hostfunc.NewFactory()
	}
	r := &Runner{
		exec:    exec,
		factory: factory,
		logger:  zap.NewNop(),
		entry:   executor.DefaultEntryPoint,
		timeout: executor.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunAll returns a lazy sequence of outcomes, one per case, in order.
// Cases run one at a time as the sequence is consumed; stopping the range
// stops the run. Ranging again starts over from the first case.
func (r *Runner) RunAll(ctx context.Context, cases []Case) iter.Seq2[Case, Outcome] {
	cases = slices.Clone(cases)
	return func(yield func(Case, Outcome) bool) {
		for _, c := range cases {
			if !yield(c, r.Run(ctx, c)) {
				return
			}
		}
	}
}

// Run executes a single case. Every failure is reported in the Outcome.
func (r *Runner) Run(ctx context.Context, c Case) Outcome {
	start := time.Now()
	var buf bytes.Buffer

	out := r.run(ctx, c, &buf)
	out.Case = c
	out.Output = buf.String()
	out.Duration = time.Since(start)
	out.check()

	fields := []zap.Field{
		zap.String("case", c.DisplayName()),
		zap.Duration("duration", out.Duration),
	}
	if out.Err != nil {
		fields = append(fields, zap.String("kind", string(out.Kind())), zap.Error(out.Err))
	} else {
		fields = append(fields, zap.Int32("status", out.Status))
	}
	if out.Failed() {
		r.logger.Info("case failed", append(fields, zap.Strings("mismatches", out.Mismatches))...)
	} else {
		r.logger.Debug("case passed", fields...)
	}

	return out
}

func (r *Runner) run(ctx context.Context, c Case, buf *bytes.Buffer) Outcome {
	source, err := r.readSource(c.Path)
	if err != nil {
		return Outcome{Err: err}
	}

	mod, err := r.exec.Load(ctx, source)
	if err != nil {
		return Outcome{Err: err}
	}
	defer mod.Close(context.Background())

	var stdout io.Writer = buf
	if r.echo != nil {
		stdout = io.MultiWriter(buf, r.echo)
	}

	registry, err := r.factory(hostfunc.Env{
		Stdout:  stdout,
		Stdin:   strings.NewReader(c.Stdin),
		Handles: r.handles,
	})
	if err != nil {
		return Outcome{Err: executor.LinkError(err)}
	}

	entry := r.entry
	if c.Entry != "" {
		entry = c.Entry
	}
	timeout := r.timeout
	if d, ok, err := c.timeout(); err != nil {
		r.logger.Warn("ignoring invalid case timeout",
			zap.String("case", c.DisplayName()),
			zap.String("timeout", c.Timeout),
			zap.Error(err))
	} else if ok {
		timeout = d
	}

	opts := []executor.Option{
		executor.WithEntryPoint(entry),
		executor.WithTimeout(timeout),
		executor.WithStdout(stdout),
		executor.WithStdin(strings.NewReader(c.Stdin)),
	}
	for _, m := range r.mounts {
		opts = append(opts, executor.WithMount(m))
	}

	result := r.exec.Run(ctx, mod, registry, opts...)
	return Outcome{Status: result.Status, Err: result.Error}
}

func (r *Runner) readSource(path string) ([]byte, error) {
	if r.baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, executor.SourceReadError(err)
	}
	if !executor.IsBinary(data) && !utf8.Valid(data) {
		return nil, executor.SourceReadError(errors.New(path + ": source is not valid UTF-8"))
	}
	return data, nil
}
