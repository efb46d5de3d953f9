package models

import (
	"errors"
	"testing"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&AuthError{Reason: "bad token"}, "unauthorized"},
		{&AuthorizationError{Reason: "not a member"}, "forbidden"},
		{&NotFoundError{Resource: "chat"}, "not_found"},
		{&ValidationError{Reason: "empty"}, "invalid"},
		{&StoreError{Op: "insert", Err: errors.New("boom")}, "internal"},
		{errors.New("anything else"), "internal"},
	}

	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.want {
			t.Fatalf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestClientMessageHidesStoreDetail(t *testing.T) {
	err := &StoreError{Op: "insert", Err: errors.New("pq: connection refused")}
	if msg := ClientMessage(err); msg != "internal error" {
		t.Fatalf("store detail leaked to the client: %q", msg)
	}

	v := &ValidationError{Reason: "empty content"}
	if msg := ClientMessage(v); msg != v.Error() {
		t.Fatalf("validation text should pass through, got %q", msg)
	}
}

func TestStoreErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &StoreError{Op: "insert", Err: inner}
	if !errors.Is(err, inner) {
		t.Fatalf("StoreError should unwrap to the inner error")
	}
}
