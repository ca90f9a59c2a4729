package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := New(ErrCodeStoreLocked, "store is locked by another writer", nil)
	want := "[ERR_102_STORE_LOCKED] store is locked by another writer"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCategoryDerivation(t *testing.T) {
	cases := []struct {
		code string
		want Category
	}{
		{ErrCodeStoreUnavailable, CategoryStore},
		{ErrCodeApplyFailure, CategoryApply},
		{ErrCodeFieldConversion, CategoryApply},
		{ErrCodeCompactionFailure, CategoryMaintenance},
		{ErrCodeConfigInvalid, CategoryConfig},
		{"bogus", CategoryInternal},
	}
	for _, tc := range cases {
		if got := New(tc.code, "x", nil).Category; got != tc.want {
			t.Errorf("category of %s = %s, want %s", tc.code, got, tc.want)
		}
	}
}

func TestUnwrapAndIs(t *testing.T) {
	cause := fmt.Errorf("disk gone")
	err := New(ErrCodeApplyFailure, "could not apply add", cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !stderrors.Is(err, New(ErrCodeApplyFailure, "other message", nil)) {
		t.Error("errors.Is should match IndexError by code")
	}
	if stderrors.Is(err, New(ErrCodeStoreLocked, "x", nil)) {
		t.Error("errors.Is should not match a different code")
	}
}

func TestCodeOfWrappedChain(t *testing.T) {
	inner := New(ErrCodeFieldConversion, "bad int", nil)
	wrapped := fmt.Errorf("field price: %w", inner)

	if got := CodeOf(wrapped); got != ErrCodeFieldConversion {
		t.Errorf("CodeOf = %q, want %q", got, ErrCodeFieldConversion)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(New(ErrCodeStoreUnavailable, "missing", nil)) {
		t.Error("store unavailable should be fatal")
	}
	if !IsFatal(New(ErrCodeApplyFailure, "apply", nil)) {
		t.Error("apply failure should be fatal")
	}
	if IsFatal(New(ErrCodeCompactionFailure, "compact", nil)) {
		t.Error("compaction failure should be non-fatal")
	}
	if IsFatal(fmt.Errorf("plain")) {
		t.Error("plain errors should be non-fatal")
	}
}

func TestWithItem(t *testing.T) {
	err := New(ErrCodeApplyFailure, "apply", nil).WithItem("doc-9")
	if err.ItemID != "doc-9" {
		t.Errorf("ItemID = %q, want doc-9", err.ItemID)
	}
}
