package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	err := NewAppError(ErrCodeNoData, "no ratio data available", nil)
	want := "[NO_DATA] no ratio data available"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}

	detailed := NewAppErrorWithDetails(ErrCodeInvalidConfig, "invalid configuration", "window must be at least 2", nil)
	want = "[INVALID_CONFIGURATION] invalid configuration: window must be at least 2"
	if detailed.Error() != want {
		t.Errorf("expected %q, got %q", want, detailed.Error())
	}
}

func TestWrapError(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	wrapped := WrapError(cause, ErrCodeDBConnection, "failed to connect")

	if wrapped.Code != ErrCodeDBConnection {
		t.Errorf("expected code %s, got %s", ErrCodeDBConnection, wrapped.Code)
	}
	if wrapped.Unwrap() != cause {
		t.Error("expected the cause to be preserved")
	}

	// Wrapping an AppError passes it through unchanged.
	rewrapped := WrapError(wrapped, ErrCodeInternal, "other message")
	if rewrapped != wrapped {
		t.Error("expected existing AppError to pass through")
	}

	if WrapError(nil, ErrCodeInternal, "msg") != nil {
		t.Error("expected nil for nil cause")
	}
}

func TestIsCode(t *testing.T) {
	err := NewAppError(ErrCodeInsufficientData, "not enough points", nil)
	if !IsCode(err, ErrCodeInsufficientData) {
		t.Error("expected code match")
	}
	if IsCode(err, ErrCodeNoData) {
		t.Error("expected code mismatch")
	}
	if IsCode(fmt.Errorf("plain"), ErrCodeNoData) {
		t.Error("plain errors never match")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeNoData, http.StatusNotFound},
		{ErrCodeInvalidConfig, http.StatusBadRequest},
		{ErrCodeInsufficientData, http.StatusBadRequest},
		{ErrCodeTimeout, http.StatusRequestTimeout},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := NewAppError(c.code, "msg", nil).HTTPStatus(); got != c.want {
			t.Errorf("code %s: expected %d, got %d", c.code, c.want, got)
		}
	}
}

func TestWithContext(t *testing.T) {
	err := NewAppError(ErrCodeDBQuery, "query failed", nil).
		WithContext("metric", "gsr_ma_90").
		WithContext("window", 90)

	if err.Context["metric"] != "gsr_ma_90" {
		t.Errorf("unexpected context: %v", err.Context)
	}
	if err.Context["window"] != 90 {
		t.Errorf("unexpected context: %v", err.Context)
	}
}
