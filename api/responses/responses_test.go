package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/angelmondragon/logbook-backend/pkg/errors"
	"github.com/angelmondragon/logbook-backend/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	if got := w.Code; got != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", got)
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteSuccessPageIncludesMeta(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessPage(w, []string{"a", "b"}, types.PageMeta{Limit: 50, Offset: 0, Count: 2})

	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if body.Meta == nil || body.Meta.Count != 2 || body.Meta.Limit != 50 {
		t.Fatalf("unexpected meta %+v", body.Meta)
	}

	plain := httptest.NewRecorder()
	WriteSuccess(plain, "ok")
	var raw map[string]any
	if err := json.NewDecoder(plain.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := raw["meta"]; ok {
		t.Fatal("non-list responses must omit meta")
	}
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "location is outside the allowed area").
		WithReason("OUTSIDE_GEOFENCE").
		WithDetails(map[string]any{"distance_meters": 812.5})
	WriteError(context.Background(), nil, w, err)

	if got := w.Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Reason != "OUTSIDE_GEOFENCE" {
		t.Fatalf("unexpected reason %q", body.Error.Reason)
	}
	if body.Error.Message != "location is outside the allowed area" {
		t.Fatalf("unexpected message %q", body.Error.Message)
	}
	if body.Error.Details == nil {
		t.Fatalf("expected details in public payload")
	}
}

func TestWriteErrorHidesForbiddenReason(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of division 7"))

	if got := w.Code; got != http.StatusForbidden {
		t.Fatalf("expected status 403 but got %d", got)
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Message != "access denied" {
		t.Fatalf("expected public message, got %q", body.Error.Message)
	}
}

func TestWriteErrorSeparatesMissingAndInvalidCredentials(t *testing.T) {
	missing := httptest.NewRecorder()
	WriteError(context.Background(), nil, missing, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credential"))
	invalid := httptest.NewRecorder()
	WriteError(context.Background(), nil, invalid, pkgerrors.New(pkgerrors.CodeInvalidToken, "token is expired"))

	for _, w := range []*httptest.ResponseRecorder{missing, invalid} {
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(invalid.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeInvalidToken) || body.Error.Message != "invalid or expired credentials" {
		t.Fatalf("unexpected invalid-token payload %+v", body.Error)
	}
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Details != nil {
		t.Fatalf("details should be omitted for internal errors")
	}
}
