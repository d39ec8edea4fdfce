// Package utils holds the low-level helpers shared by stageflow packages:
// the streaming HTTP POST used for chat completions ([DoPostStream]),
// resource cleanup ([CloseWithLog]), rune-safe truncation ([Truncate]) and
// tolerant JSON decoding of model output ([ParseStringAs], [ExtractJSON]).
package utils
