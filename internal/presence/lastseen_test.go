package presence

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLastSeen(t *testing.T) {
	s := NewMemoryLastSeen()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, 1); err != nil || ok {
		t.Fatalf("unknown user should have no last-seen, got ok=%v err=%v", ok, err)
	}

	at := time.Now()
	if err := s.Touch(ctx, 1, at); err != nil {
		t.Fatalf("touch: %v", err)
	}

	got, ok, err := s.Get(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("expected a last-seen entry, got ok=%v err=%v", ok, err)
	}
	if !got.Equal(at) {
		t.Fatalf("expected %v, got %v", at, got)
	}
}
