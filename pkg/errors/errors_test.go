package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
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
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeInvalidToken, status: http.StatusUnauthorized, publicMsg: "invalid or expired credentials"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
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

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail).WithReason("MISSING_FIELD")
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}
	if base.Error() != "VALIDATION_ERROR(MISSING_FIELD): missing foo" {
		t.Fatalf("unexpected error string %q", base.Error())
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

func TestHasCodeAndReasonSeeThroughWrapping(t *testing.T) {
	typed := New(CodeConflict, "already checked in").WithReason("ALREADY_CHECKED_IN")
	err := fmt.Errorf("check in: %w", typed)

	if !HasCode(err, CodeConflict) {
		t.Fatal("expected HasCode to match wrapped typed error")
	}
	if !HasReason(err, "ALREADY_CHECKED_IN") {
		t.Fatal("expected HasReason to match wrapped typed error")
	}
	if HasCode(stdErrors.New("plain"), CodeConflict) {
		t.Fatal("plain errors carry no code")
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestDumpExtractsPostgresMetadata(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_attendance_open_session", TableName: "attendance_records"}
	err := Wrap(CodeConflict, pgErr, "insert attendance").WithReason("ALREADY_CHECKED_IN")

	dump := Dump(err)
	if dump.PGCode != "23505" || dump.PGConstraint != "ux_attendance_open_session" {
		t.Fatalf("unexpected pg fields %+v", dump)
	}
	if dump.Code != CodeConflict || dump.Reason != "ALREADY_CHECKED_IN" {
		t.Fatalf("unexpected typed fields %+v", dump)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two links in chain, got %v", dump.Chain)
	}
}
