package executor

import (
	"bytes"

	"github.com/wasmerio/wasmer-go/wasmer"
)

// TextDecoder converts WebAssembly text format into the binary format.
type TextDecoder func(text string) ([]byte, error)

// Wat2Wasm is the default TextDecoder, backed by wasmer's wat parser.
func Wat2Wasm(text string) ([]byte, error) {
	return wasmer.Wat2Wasm(text)
}

var wasmMagic = []byte{0x00, 'a', 's', 'm'}

// IsBinary reports whether source is already a binary module.
func IsBinary(source []byte) bool {
	return bytes.HasPrefix(source, wasmMagic)
}
