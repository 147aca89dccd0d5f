package testutil

import (
	"errors"
	"testing"

	apperrors "dojo/internal/errors"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) *apperrors.AppError {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
	return appErr
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertMinor fails the test if got differs from want.
func AssertMinor(t *testing.T, what string, got, want int64) {
	t.Helper()

	if got != want {
		t.Errorf("%s: expected %d, got %d", what, want, got)
	}
}

// AssertDetails checks that each key in want appears in the error details with
// an equal value. Numbers must match the stored type, e.g. int64 for minor units.
func AssertDetails(t *testing.T, appErr *apperrors.AppError, want map[string]any) {
	t.Helper()

	for key, w := range want {
		got, ok := appErr.Details[key]
		if !ok {
			t.Errorf("expected detail %q, got %+v", key, appErr.Details)
			continue
		}
		if got != w {
			t.Errorf("detail %q: expected %v (%T), got %v (%T)", key, w, w, got, got)
		}
	}
}
