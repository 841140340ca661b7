package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestRegisterDuplicateCodePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("panic expected")
		}
	}()
	Register(3, "conflicts with not found")
}

func TestIsMatchesWrappedErrors(t *testing.T) {
	err := Wrap(ErrNotFound, "strategy")
	if !ErrNotFound.Is(err) {
		t.Fatal("wrap must preserve the cause")
	}
	err = Wrapf(err, "context %d", 42)
	if !ErrNotFound.Is(err) {
		t.Fatal("double wrap must preserve the cause")
	}
	if ErrState.Is(err) {
		t.Fatal("unrelated error matched")
	}
}

func TestIsNil(t *testing.T) {
	if ErrNotFound.Is(nil) {
		t.Fatal("nil is not an error")
	}
	if Wrap(nil, "whatever") != nil {
		t.Fatal("wrapping nil must return nil")
	}
}

func TestWrapKeepsMessage(t *testing.T) {
	err := Wrap(ErrAmount, "negative fee")
	want := "negative fee: invalid amount"
	if got := err.Error(); got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestNewCreatesDistinctInstances(t *testing.T) {
	a := ErrInput.New("first")
	b := ErrInput.New("second")
	if !ErrInput.Is(a) || !ErrInput.Is(b) {
		t.Fatal("instances must match their class")
	}
	if a.Error() == b.Error() {
		t.Fatal("messages must differ")
	}
}

func TestStandardLibraryCauseChain(t *testing.T) {
	cause := stderrors.New("io broke")
	err := Wrap(cause, "loading")
	if Cause(err) != cause {
		t.Fatalf("cause lost: %+v", Cause(err))
	}
}

func TestWrappedErrorFormatting(t *testing.T) {
	err := Wrapf(ErrDatabase, "bucket %q", "votes")
	got := fmt.Sprintf("%s", err)
	want := `bucket "votes": database`
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestRecover(t *testing.T) {
	var err error
	func() {
		defer Recover(&err)
		panic("boom")
	}()
	if !ErrPanic.Is(err) {
		t.Fatalf("want panic error, got %+v", err)
	}
}
