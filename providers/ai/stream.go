package ai

import (
	"iter"
	"strings"
)

// ChatStream is a single-use sequence of text fragments.
//
// Callers must consume the stream, by ranging over Iter (breaking early is
// fine) or by calling Collect. Providers release the underlying response
// body only when iteration ends.
type ChatStream struct {
	iterator iter.Seq2[string, error]
}

// NewChatStream wraps a raw iterator. The iterator yields fragments with a
// nil error and at most one non-nil error as its last element.
func NewChatStream(iterator iter.Seq2[string, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// NewTextStream returns a stream that yields each fragment in order. It is
// used by tests and by callers replaying stored output.
func NewTextStream(fragments ...string) *ChatStream {
	return NewChatStream(func(yield func(string, error) bool) {
		for _, fragment := range fragments {
			if !yield(fragment, nil) {
				return
			}
		}
	})
}

// Iter returns the underlying iterator.
//
//	for fragment, err := range stream.Iter() {
//	    if err != nil { ... }
//	    fmt.Print(fragment)
//	}
func (s *ChatStream) Iter() iter.Seq2[string, error] {
	return s.iterator
}

// Collect drains the stream and returns the concatenated text. On a
// mid-stream error the text received so far is returned with the error.
func (s *ChatStream) Collect() (string, error) {
	var text strings.Builder
	for fragment, err := range s.iterator {
		if err != nil {
			return text.String(), err
		}
		text.WriteString(fragment)
	}
	return text.String(), nil
}
