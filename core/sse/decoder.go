package sse

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// DataPrefix starts every frame the decoder looks at.
	DataPrefix = "data:"

	// DoneSentinel is the payload that announces the end of the stream.
	DoneSentinel = "[DONE]"

	delimiter = "\n\n"
)

// chunkPayload is the part of a streamed chat-completions chunk we read.
type chunkPayload struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Decoder is the incremental state for one response stream. It is not safe
// for concurrent use.
type Decoder struct {
	utf8    transform.Transformer
	pending []byte
	buffer  string
}

// NewDecoder returns a Decoder with empty buffers.
func NewDecoder() *Decoder {
	return &Decoder{utf8: unicode.UTF8.NewDecoder()}
}

// Feed appends chunk to the buffer and returns the fragments of every event
// completed by it, in order. A chunk that completes no event returns nil.
func (d *Decoder) Feed(chunk []byte) []string {
	d.buffer += d.decodeText(chunk)
	if strings.IndexByte(d.buffer, '\r') >= 0 {
		d.buffer = strings.ReplaceAll(d.buffer, "\r\n", "\n")
	}

	events := strings.Split(d.buffer, delimiter)
	d.buffer = events[len(events)-1]

	var fragments []string
	for _, event := range events[:len(events)-1] {
		if fragment, ok := parseEvent(event); ok {
			fragments = append(fragments, fragment)
		}
	}
	return fragments
}

// Buffered reports the undecoded and unterminated input still held.
func (d *Decoder) Buffered() int {
	return len(d.pending) + len(d.buffer)
}

// decodeText runs chunk through the UTF-8 decoder. An incomplete rune at the
// end of the chunk is kept in d.pending and completed by the next call.
// Invalid sequences become U+FFFD.
func (d *Decoder) decodeText(chunk []byte) string {
	src := append(d.pending, chunk...)
	dst := make([]byte, len(src)+8)

	var out strings.Builder
	for {
		nDst, nSrc, err := d.utf8.Transform(dst, src, false)
		out.Write(dst[:nDst])
		src = src[nSrc:]
		if errors.Is(err, transform.ErrShortDst) {
			dst = make([]byte, 2*len(dst))
			continue
		}
		break
	}

	d.pending = slices.Clone(src)
	return out.String()
}

// parseEvent extracts the content delta from one complete event.
func parseEvent(event string) (string, bool) {
	if !strings.HasPrefix(event, DataPrefix) {
		return "", false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(event, DataPrefix))
	if payload == DoneSentinel {
		return "", false
	}

	var chunk chunkPayload
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return "", false
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
		return "", false
	}
	return chunk.Choices[0].Delta.Content, true
}
