package ai

import (
	"errors"
	"fmt"
	"testing"
)

func TestChatStream_Collect_ConcatenatesFragments(t *testing.T) {
	text, err := NewTextStream("Hel", "lo", "!").Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hello!" {
		t.Errorf("expected %q, got %q", "Hello!", text)
	}
}

// TestChatStream_CollectMidStreamError_ReturnsPartialText verifies the
// partial text is kept alongside the error.
func TestChatStream_CollectMidStreamError_ReturnsPartialText(t *testing.T) {
	boom := errors.New("reset")
	stream := NewChatStream(func(yield func(string, error) bool) {
		if !yield("part", nil) {
			return
		}
		yield("", boom)
	})

	text, err := stream.Collect()
	if !errors.Is(err, boom) || text != "part" {
		t.Errorf("got text %q err %v", text, err)
	}
}

func TestIsPreflight_Table(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: ErrMissingAPIKey, want: true},
		{err: fmt.Errorf("post: %w", ErrUnauthorized), want: true},
		{err: fmt.Errorf("dial: %w", ErrUnreachable), want: true},
		{err: errors.New("stream reset"), want: false},
		{err: nil, want: false},
	}
	for _, tt := range tests {
		if got := IsPreflight(tt.err); got != tt.want {
			t.Errorf("IsPreflight(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestNewChatRequest_SystemThenUser(t *testing.T) {
	request := NewChatRequest("be brief", "plan this")
	if len(request.Messages) != 2 || request.Messages[0].Role != RoleSystem || request.Messages[1].Content != "plan this" {
		t.Errorf("unexpected request %+v", request)
	}
}
