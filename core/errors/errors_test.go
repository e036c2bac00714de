package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	wrapped := fmt.Errorf("join pool: %w", ErrArithmeticOverflow)
	if KindOf(wrapped) != KindArithmetic {
		t.Fatalf("expected arithmetic kind, got %s", KindOf(wrapped))
	}
	if CodeOf(wrapped) != "ArithmeticOverflow" {
		t.Fatalf("unexpected code %q", CodeOf(wrapped))
	}
	if !stderrors.Is(wrapped, ErrArithmeticOverflow) {
		t.Fatalf("expected errors.Is to match sentinel")
	}
}

func TestWrapfKeepsIdentity(t *testing.T) {
	err := ErrUnauthorized.Wrapf("caller %s", "monk1xyz")
	if !stderrors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected wrapped sentinel")
	}
	if err.Error() != "unauthorized: caller monk1xyz" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestUntypedError(t *testing.T) {
	err := stderrors.New("disk on fire")
	if KindOf(err) != KindUnknown || CodeOf(err) != "Internal" {
		t.Fatalf("untyped error classified as %s/%s", KindOf(err), CodeOf(err))
	}
}
