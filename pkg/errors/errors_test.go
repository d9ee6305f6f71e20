package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authorization required"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeRejectedLocally, status: http.StatusUnprocessableEntity, publicMsg: "request rejected", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestCodeForStatus(t *testing.T) {
	cases := map[int]Code{
		http.StatusBadRequest:          CodeValidation,
		http.StatusUnauthorized:        CodeUnauthorized,
		http.StatusForbidden:           CodeUnauthorized,
		http.StatusNotFound:            CodeNotFound,
		http.StatusConflict:            CodeConflict,
		http.StatusInternalServerError: CodeDependency,
		http.StatusBadGateway:          CodeDependency,
	}
	for status, want := range cases {
		if got := CodeForStatus(status); got != want {
			t.Fatalf("status %d: expected %s got %s", status, want, got)
		}
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "foo"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsAndIsCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeUnauthorized, "no token"))
	typed := As(err)
	if typed == nil || typed.Code() != CodeUnauthorized {
		t.Fatalf("expected typed unauthorized error, got %v", typed)
	}
	if !IsCode(err, CodeUnauthorized) {
		t.Fatalf("IsCode should see wrapped code")
	}
	if IsCode(stdErrors.New("plain"), CodeUnauthorized) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	cause := stdErrors.New("dial tcp: refused")
	err := Wrap(CodeDependency, cause, "fetch cart")
	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", dump.Chain)
	}
	if Dump(nil).TopMessage != "" {
		t.Fatalf("nil dump should be empty")
	}
}

func TestDumpCarriesUpstreamStatusThroughWrapping(t *testing.T) {
	backend := Wrap(CodeForStatus(http.StatusBadGateway), stdErrors.New("status 502: bad gateway"), "GET /cart/ failed").
		WithUpstreamStatus(http.StatusBadGateway)
	err := Wrap(CodeUnauthorized, backend, "session expired")

	dump := Dump(err)
	if dump.Code != CodeUnauthorized {
		t.Fatalf("expected outermost code, got %s", dump.Code)
	}
	if dump.HTTPStatus != http.StatusUnauthorized || dump.Retryable {
		t.Fatalf("expected unauthorized metadata, got status %d retryable %v", dump.HTTPStatus, dump.Retryable)
	}
	if dump.UpstreamStatus != http.StatusBadGateway {
		t.Fatalf("expected upstream 502, got %d", dump.UpstreamStatus)
	}
	want := []string{
		"UNAUTHORIZED: session expired",
		"DEPENDENCY_ERROR: GET /cart/ failed [upstream 502]",
		"status 502: bad gateway",
	}
	if fmt.Sprint(dump.Chain) != fmt.Sprint(want) {
		t.Fatalf("unexpected chain %q", dump.Chain)
	}
}

func TestUpstreamStatusOfLocalErrorIsZero(t *testing.T) {
	if got := UpstreamStatusOf(New(CodeValidation, "bad id")); got != 0 {
		t.Fatalf("expected zero, got %d", got)
	}
	if got := UpstreamStatusOf(nil); got != 0 {
		t.Fatalf("expected zero for nil, got %d", got)
	}
	var typed *Error
	if typed.WithUpstreamStatus(500) != nil || typed.UpstreamStatus() != 0 {
		t.Fatalf("nil error should stay nil")
	}
}
