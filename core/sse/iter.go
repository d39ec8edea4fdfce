package sse

import (
	"errors"
	"io"
	"iter"
)

// readSize is the chunk size Read asks the underlying reader for.
const readSize = 4096

// Decode lazily maps a sequence of byte chunks to text fragments. Stopping
// the range loop early stops pulling chunks.
func Decode(chunks iter.Seq[[]byte]) iter.Seq[string] {
	return func(yield func(string) bool) {
		decoder := NewDecoder()
		for chunk := range chunks {
			for _, fragment := range decoder.Feed(chunk) {
				if !yield(fragment) {
					return
				}
			}
		}
	}
}

// Read decodes fragments from r until EOF. A read error other than io.EOF is
// yielded once and ends the sequence; the caller closes r.
func Read(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		decoder := NewDecoder()
		buf := make([]byte, readSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				for _, fragment := range decoder.Feed(buf[:n]) {
					if !yield(fragment, nil) {
						return
					}
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
		}
	}
}
