// Package sse turns a chat-completions event stream into text fragments.
//
// A [Decoder] is fed raw byte chunks exactly as they come off the response
// body. It carries partial UTF-8 sequences and partial events across chunk
// boundaries, so the fragments it produces do not depend on where the
// network happened to split the stream. [Decode] and [Read] wrap a Decoder
// as a lazy iterator.
//
// Frames that are not data frames, the "[DONE]" sentinel, and data frames
// whose payload is not valid JSON are dropped without error. Bytes still
// buffered when the source ends are discarded.
package sse
