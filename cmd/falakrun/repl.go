package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caffeineduck/falakrun/executor"
	"github.com/caffeineduck/falakrun/hostfunc"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive REPL for WebAssembly text modules",
	Long: `Start an interactive REPL (Read-Eval-Print Loop) session.

Type or paste a (module ...) form; input continues until the parentheses
balance, then the module is loaded and its entry point is run.

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)

Commands:
  :load <path>     Run a .wat or .wasm file
  :entry <name>    Set the entry point (default: start)
  :timeout <d>     Set the timeout, e.g. 5s
  :imports         List the imports of the last module

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
	RunE: runRepl,
}

func init() {
	replCmd.Flags().String("history", "", "History file path (default: ~/.falakrun_history)")
	replCmd.Flags().StringSlice("bundle", nil, "Host bundle: falak, wasi, assemblyscript (repeatable)")
	replCmd.Flags().String("stdin", "", "Text the guest reads from standard input")
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) error {
	historyFile, _ := cmd.Flags().GetString("history")
	bundleNames, _ := cmd.Flags().GetStringSlice("bundle")
	stdin, _ := cmd.Flags().GetString("stdin")

	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".falakrun_history")
	}

	bundles := make([]hostfunc.Bundle, 0, len(bundleNames))
	for _, name := range bundleNames {
		b, err := hostfunc.ParseBundle(name)
		if err != nil {
			return err
		}
		bundles = append(bundles, b)
	}
	factory, err := hostfunc.NewFactory(bundles...)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	exec, logger, err := newExecutor(cmd)
	if err != nil {
		return err
	}
	defer exec.Close()
	defer logger.Sync()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "wat> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(os.Stderr, "falakrun REPL (type 'exit' to quit, Ctrl+D to exit)")

	s := newReplState(exec, factory, os.Stdout)
	s.stdin = stdin
	defer s.close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if s.pending() {
					s.reset()
					rl.SetPrompt("wat> ")
				}
				continue
			}
			if err == io.EOF {
				fmt.Println()
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		if quit := s.feed(context.Background(), line); quit {
			break
		}
		if s.pending() {
			rl.SetPrompt("...  ")
		} else {
			rl.SetPrompt("wat> ")
		}
	}
	return nil
}

// replState accumulates module text across lines and runs each complete
// module against a fresh set of host bindings.
type replState struct {
	exec    *executor.Executor
	factory hostfunc.Factory
	out     io.Writer
	entry   string
	timeout time.Duration
	stdin   string
	last    *executor.Module

	buf     strings.Builder
	depth   int
	inBlock bool
}

func newReplState(exec *executor.Executor, factory hostfunc.Factory, out io.Writer) *replState {
	return &replState{
		exec:    exec,
		factory: factory,
		out:     out,
		entry:   executor.DefaultEntryPoint,
		timeout: executor.DefaultTimeout,
	}
}

func (s *replState) pending() bool {
	return s.buf.Len() > 0
}

func (s *replState) reset() {
	s.buf.Reset()
	s.depth = 0
	s.inBlock = false
}

// feed consumes one input line and reports whether the session should end.
func (s *replState) feed(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if !s.pending() {
		switch {
		case trimmed == "":
			return false
		case trimmed == "exit" || trimmed == "quit":
			return true
		case strings.HasPrefix(trimmed, ":"):
			s.command(ctx, trimmed)
			return false
		}
	}

	s.buf.WriteString(line)
	s.buf.WriteString("\n")
	s.scan(line)

	if s.depth <= 0 && !s.inBlock {
		source := s.buf.String()
		s.reset()
		s.eval(ctx, []byte(source))
	}
	return false
}

// scan tracks parenthesis depth, skipping strings and comments.
func (s *replState) scan(line string) {
	inString := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case s.inBlock:
			if c == ';' && i+1 < len(line) && line[i+1] == ')' {
				s.inBlock = false
				i++
			}
		case inString:
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == ';' && i+1 < len(line) && line[i+1] == ';':
			return
		case c == '(' && i+1 < len(line) && line[i+1] == ';':
			s.inBlock = true
			i++
		case c == '(':
			s.depth++
		case c == ')':
			s.depth--
		}
	}
}

func (s *replState) command(ctx context.Context, line string) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":load":
		if arg == "" {
			fmt.Fprintln(s.out, "usage: :load <path>")
			return
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			fmt.Fprintln(s.out, executor.SourceReadError(err))
			return
		}
		s.eval(ctx, data)
	case ":entry":
		if arg == "" {
			fmt.Fprintf(s.out, "entry: %s\n", s.entry)
			return
		}
		s.entry = arg
	case ":timeout":
		if arg == "" {
			fmt.Fprintf(s.out, "timeout: %v\n", s.timeout)
			return
		}
		d, err := time.ParseDuration(arg)
		if err != nil || d < 0 {
			fmt.Fprintf(s.out, "invalid timeout %q\n", arg)
			return
		}
		s.timeout = d
	case ":imports":
		if s.last == nil {
			fmt.Fprintln(s.out, "no module loaded")
			return
		}
		for _, k := range s.last.Imports() {
			fmt.Fprintln(s.out, k)
		}
	default:
		fmt.Fprintf(s.out, "unknown command %q\n", name)
	}
}

func (s *replState) eval(ctx context.Context, source []byte) {
	mod, err := s.exec.Load(ctx, source)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	if s.last != nil {
		s.last.Close(context.Background())
	}
	s.last = mod

	registry, err := s.factory(hostfunc.Env{Stdout: s.out, Stdin: strings.NewReader(s.stdin)})
	if err != nil {
		fmt.Fprintln(s.out, executor.LinkError(err))
		return
	}

	result := s.exec.Run(ctx, mod, registry,
		executor.WithEntryPoint(s.entry),
		executor.WithTimeout(s.timeout),
		executor.WithStdout(s.out),
		executor.WithStdin(strings.NewReader(s.stdin)),
	)
	if result.Error != nil {
		fmt.Fprintln(s.out, result.Error)
		return
	}
	fmt.Fprintf(s.out, "exit code %d\n", result.Status)
}

func (s *replState) close() {
	if s.last != nil {
		s.last.Close(context.Background())
		s.last = nil
	}
}
