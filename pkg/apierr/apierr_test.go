package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestError_Response(t *testing.T) {
	e := RunCreateFailed(errors.New("conn refused"))
	if e.Status() != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", e.Status())
	}
	resp := e.Response()
	if resp.Error.Code != CodeRunCreateFailed {
		t.Errorf("expected code %s, got %s", CodeRunCreateFailed, resp.Error.Code)
	}
	if resp.Error.Message != "Failed to create run" {
		t.Errorf("unexpected message %q", resp.Error.Message)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	if !errors.Is(InternalError(cause), cause) {
		t.Error("expected wrapped cause")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("get run: %w", pgx.ErrNoRows)) {
		t.Error("expected wrapped ErrNoRows to be not found")
	}
	if IsNotFound(errors.New("other")) {
		t.Error("unexpected not found")
	}
}

func TestFrom(t *testing.T) {
	if From(RunNotFound()).Code() != CodeRunNotFound {
		t.Error("expected *Error to pass through")
	}
	if From(errors.New("x")).Code() != CodeInternalError {
		t.Error("expected plain error to become internal")
	}
}

func TestError_IsByCode(t *testing.T) {
	err := fmt.Errorf("handler: %w", RunNotFound())
	if !errors.Is(err, RunNotFound()) {
		t.Error("expected match by code")
	}
	if errors.Is(err, InvalidRunID()) {
		t.Error("unexpected match for a different code")
	}
}
