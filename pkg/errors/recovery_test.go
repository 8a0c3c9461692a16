package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "gam.Fit")
		panic("index out of range")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if panicErr.Operation != "gam.Fit" {
		t.Errorf("Expected operation 'gam.Fit', got '%s'", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}
	if panicErr.Error() != "panic in gam.Fit: index out of range" {
		t.Errorf("unexpected message %q", panicErr.Error())
	}
	if !strings.Contains(panicErr.String(), "Stack trace:") {
		t.Error("String() should include stack trace information")
	}
}

func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "glm.Fit")
		return nil
	}

	if err := testFunc(); err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	testFunc := func() (err error) {
		defer Recover(&err, "boost.Fit")
		err = originalErr
		panic("panic after error")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "panic in boost.Fit") {
		t.Errorf("Error message should contain panic info: %s", err)
	}
	if !errors.Is(err, originalErr) {
		t.Error("Should be able to identify original error with errors.Is")
	}
}

func TestSafeExecute(t *testing.T) {
	fnErr := fmt.Errorf("function error")

	tests := []struct {
		name      string
		fn        func() error
		wantErr   error
		wantPanic bool
	}{
		{name: "success", fn: func() error { return nil }},
		{name: "returned error", fn: func() error { return fnErr }, wantErr: fnErr},
		{name: "panic", fn: func() error { panic("boom") }, wantPanic: true},
		{name: "error panic", fn: func() error { panic(fmt.Errorf("matrix dimension error")) }, wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("fit", tt.fn)
			var panicErr *PanicError
			switch {
			case tt.wantPanic:
				if !errors.As(err, &panicErr) {
					t.Fatalf("Expected PanicError, got %T (%v)", err, err)
				}
			case tt.wantErr != nil:
				if err != tt.wantErr {
					t.Fatalf("Expected original error, got: %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}

func BenchmarkSafeExecute_NoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SafeExecute("BenchmarkOp", func() error {
			return nil
		})
	}
}
