package hostfunc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/api"
)

// FalakModule is the import module name compiled Falak programs use.
const FalakModule = "falak"

var errEndOfInput = errors.New("end of input")

// FalakConfig configures the Falak runtime library.
type FalakConfig struct {
	Stdout  io.Writer
	Stdin   io.Reader
	Handles []HandleOption
}

// Falak implements the runtime primitives a Falak program expects from its host:
// console I/O and handle-based integer lists. Every function returns an i32.
//
// Runtime errors (bad handle, index out of range, unreadable input) panic
// inside the host call, which the engine reports as a trap of the guest.
type Falak struct {
	out     io.Writer
	in      *bufio.Reader
	handles *HandleStore
}

func NewFalak(cfg FalakConfig) *Falak {
	out := cfg.Stdout
	if out == nil {
		out = io.Discard
	}
	in := cfg.Stdin
	if in == nil {
		in = strings.NewReader("")
	}
	return &Falak{
		out:     out,
		in:      bufio.NewReader(in),
		handles: NewHandleStore(cfg.Handles...),
	}
}

// Handles exposes the list store backing this instance.
func (f *Falak) Handles() *HandleStore {
	return f.handles
}

// Bindings returns the eleven Falak primitives under the "falak" module.
func (f *Falak) Bindings() []Binding {
	i32 := api.ValueTypeI32
	fn := func(name string, params int, impl api.GoModuleFunc) Binding {
		ps := make([]api.ValueType, params)
		for i := range ps {
			ps[i] = i32
		}
		return Binding{
			Key:     Key{Module: FalakModule, Name: name},
			Params:  ps,
			Results: []api.ValueType{i32},
			Fn:      impl,
		}
	}

	return []Binding{
		fn("printi", 1, f.printi),
		fn("printc", 1, f.printc),
		fn("prints", 1, f.prints),
		fn("println", 0, f.println),
		fn("readi", 0, f.readi),
		fn("reads", 0, f.reads),
		fn("new", 1, f.newList),
		fn("size", 1, f.size),
		fn("add", 2, f.add),
		fn("get", 2, f.get),
		fn("set", 3, f.set),
	}
}

func (f *Falak) printi(_ context.Context, _ api.Module, stack []uint64) {
	f.write(strconv.FormatInt(int64(api.DecodeI32(stack[0])), 10))
	stack[0] = 0
}

func (f *Falak) printc(_ context.Context, _ api.Module, stack []uint64) {
	f.write(string(rune(api.DecodeI32(stack[0]))))
	stack[0] = 0
}

func (f *Falak) prints(_ context.Context, _ api.Module, stack []uint64) {
	s, err := f.handles.String(api.DecodeI32(stack[0]))
	check("prints", err)
	f.write(s)
	stack[0] = 0
}

func (f *Falak) println(_ context.Context, _ api.Module, stack []uint64) {
	f.write("\n")
	stack[0] = 0
}

func (f *Falak) readi(_ context.Context, _ api.Module, stack []uint64) {
	line, err := f.readLine()
	if err != nil {
		check("readi", err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(line), 10, 32)
	if err != nil {
		check("readi", fmt.Errorf("invalid integer %q", strings.TrimSpace(line)))
	}
	stack[0] = api.EncodeI32(int32(v))
}

func (f *Falak) reads(_ context.Context, _ api.Module, stack []uint64) {
	line, err := f.readLine()
	if err != nil && !errors.Is(err, errEndOfInput) {
		check("reads", err)
	}
	h, err := f.handles.FromString(line)
	check("reads", err)
	stack[0] = api.EncodeI32(h)
}

func (f *Falak) newList(_ context.Context, _ api.Module, stack []uint64) {
	h, err := f.handles.New(api.DecodeI32(stack[0]))
	check("new", err)
	stack[0] = api.EncodeI32(h)
}

func (f *Falak) size(_ context.Context, _ api.Module, stack []uint64) {
	n, err := f.handles.Size(api.DecodeI32(stack[0]))
	check("size", err)
	stack[0] = api.EncodeI32(n)
}

func (f *Falak) add(_ context.Context, _ api.Module, stack []uint64) {
	check("add", f.handles.Add(api.DecodeI32(stack[0]), api.DecodeI32(stack[1])))
	stack[0] = 0
}

func (f *Falak) get(_ context.Context, _ api.Module, stack []uint64) {
	v, err := f.handles.Get(api.DecodeI32(stack[0]), api.DecodeI32(stack[1]))
	check("get", err)
	stack[0] = api.EncodeI32(v)
}

func (f *Falak) set(_ context.Context, _ api.Module, stack []uint64) {
	check("set", f.handles.Set(api.DecodeI32(stack[0]), api.DecodeI32(stack[1]), api.DecodeI32(stack[2])))
	stack[0] = 0
}

func (f *Falak) write(s string) {
	if _, err := io.WriteString(f.out, s); err != nil {
		check("write", err)
	}
}

// readLine returns the next input line without its terminator.
// A final line without a newline is returned normally; errEndOfInput is
// returned only when nothing is left to read.
func (f *Falak) readLine() (string, error) {
	line, err := f.in.ReadString('\n')
	if err == io.EOF {
		if line == "" {
			return "", errEndOfInput
		}
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// check turns a runtime error into a panic, which traps the calling guest.
func check(fn string, err error) {
	if err != nil {
		panic(fmt.Errorf("falak %s: %w", fn, err))
	}
}
