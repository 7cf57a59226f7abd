package kperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindStrings(t *testing.T) {
	cases := map[Kind]string{
		IOError:           "IOError",
		ConfigError:       "ConfigError",
		BackendError:      "BackendError",
		NumericalFailure:  "NumericalFailure",
		Infeasible:        "Infeasible",
		TimeExceeded:      "TimeExceeded",
		Aborted:           "Aborted",
		InternalInvariant: "InternalInvariant",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
	if got := Kind(255).String(); got != "UnknownErrorKind" {
		t.Errorf("expected unrecognized Kind to stringify as UnknownErrorKind, got %q", got)
	}
}

func TestErrorMessageWithAndWithoutCause(t *testing.T) {
	e := New(BackendError, "model", errors.New("solver crashed"))
	want := "model: BackendError: solver crashed"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}

	e2 := TimeExceededErr("kernelpump")
	want2 := "kernelpump: TimeExceeded"
	if e2.Error() != want2 {
		t.Errorf("Error() = %q, want %q", e2.Error(), want2)
	}
}

func TestKindOfUnwrapsPlainError(t *testing.T) {
	base := New(Infeasible, "model", nil)
	wrapped := fmt.Errorf("loading model: %w", base)

	kind, ok := KindOf(wrapped)
	if !ok {
		t.Fatalf("expected KindOf to find the wrapped *Error")
	}
	if kind != Infeasible {
		t.Errorf("expected Kind Infeasible, got %v", kind)
	}
}

func TestKindOfFalseForUnrelatedError(t *testing.T) {
	if _, ok := KindOf(errors.New("plain error")); ok {
		t.Errorf("expected KindOf to return false for a non-kperror error")
	}
	if _, ok := KindOf(nil); ok {
		t.Errorf("expected KindOf to return false for nil")
	}
}

func TestConstructorsSetExpectedKind(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		want Kind
	}{
		{"IOErr", IOErr("mps", errors.New("eof")), IOError},
		{"ConfigErr", ConfigErr("config", errors.New("bad flag")), ConfigError},
		{"BackendErr", BackendErr("model", errors.New("fail")), BackendError},
		{"NumericalFailureErr", NumericalFailureErr("fp", errors.New("nan")), NumericalFailure},
		{"InfeasibleErr", InfeasibleErr("kp", nil), Infeasible},
		{"AbortedErr", AbortedErr("cli"), Aborted},
		{"InternalInvariantErr", InternalInvariantErr("kp", "kernel must be non-nil"), InternalInvariant},
	}
	for _, c := range cases {
		if c.err.Kind != c.want {
			t.Errorf("%s: expected kind %v, got %v", c.name, c.want, c.err.Kind)
		}
	}
}
