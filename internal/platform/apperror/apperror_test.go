package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeOf(t *testing.T) {
	err := New(CodeRateLimitExceeded, "please wait 50 seconds")
	if CodeOf(err) != CodeRateLimitExceeded {
		t.Errorf("code = %s, want %s", CodeOf(err), CodeRateLimitExceeded)
	}

	wrapped := fmt.Errorf("handler: %w", err)
	if CodeOf(wrapped) != CodeRateLimitExceeded {
		t.Errorf("wrapped code = %s, want %s", CodeOf(wrapped), CodeRateLimitExceeded)
	}
}

func TestCodeOf_UnexpectedError(t *testing.T) {
	if CodeOf(errors.New("connection reset")) != CodeDatabaseError {
		t.Error("unexpected errors must map to DATABASE_ERROR")
	}
}

func TestMessageOf_DoesNotLeakInternals(t *testing.T) {
	msg := MessageOf(errors.New("pq: relation does not exist"))
	if msg != "an unexpected error occurred" {
		t.Errorf("message = %q leaks internals", msg)
	}
}

func TestWrap_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(CodeDatabaseError, "create emergency event", cause)
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to survive errors.Is")
	}
	if CodeOf(err) != CodeDatabaseError {
		t.Errorf("code = %s", CodeOf(err))
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeAuthenticationFailed:    http.StatusForbidden,
		CodeInvalidPatientID:        http.StatusNotFound,
		CodeMissingEmergencyContact: http.StatusPreconditionFailed,
		CodeRateLimitExceeded:       http.StatusTooManyRequests,
		CodeValidationError:         http.StatusBadRequest,
		CodeDatabaseError:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := HTTPStatus(code); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestFailure(t *testing.T) {
	env := Failure(New(CodeMissingEmergencyContact, "no emergency contact configured"))
	if env.Success {
		t.Error("failure envelope must have success=false")
	}
	if env.Error != CodeMissingEmergencyContact {
		t.Errorf("error = %s", env.Error)
	}
	if env.Message != "no emergency contact configured" {
		t.Errorf("message = %q", env.Message)
	}
}
