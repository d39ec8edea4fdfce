package utils

import (
	"io"
	"log/slog"
)

// CloseWithLog closes c and logs, rather than returns, any error. It is meant
// for deferred cleanup where the primary error must not be overwritten.
func CloseWithLog(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		slog.Warn("failed to close resource", "error", err.Error())
	}
}
