package daemon

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gridsight/internal/contract"
	"gridsight/internal/faults"
	"gridsight/internal/journal"
	"gridsight/internal/logging"
	"gridsight/internal/pipeline"
	"gridsight/internal/session"
)

func TestRequireTokenWithoutToken(t *testing.T) {
	called := false
	handler := requireToken("", func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected passthrough without token, got %d", rec.Code)
	}
}

func TestRequireTokenRejectsBadTokens(t *testing.T) {
	handler := requireToken("secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cases := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic secret",
		"wrong token":  "Bearer nope",
	}
	for name, value := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		if value != "" {
			req.Header.Set("Authorization", value)
		}
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token rejected with %d", rec.Code)
	}
}

func TestWriteFailureStatusMapping(t *testing.T) {
	srv := &apiServer{logger: logging.NewComponentLogger(nil, "api")}

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown session", pipeline.ErrUnknownSession, http.StatusNotFound},
		{"journal miss", journal.ErrNotFound, http.StatusNotFound},
		{"contract violation", &contract.ViolationError{Contract: contract.ManualCropV1, Reason: "missing bounds"}, http.StatusUnprocessableEntity},
		{"invalid transition", &session.InvalidTransitionError{From: session.StateComplete, To: session.StateMappingGrid}, http.StatusConflict},
		{"session busy", &pipeline.SessionBusyError{SessionID: "s1"}, http.StatusConflict},
		{"scheduler unavailable", faults.ErrUnavailable, http.StatusServiceUnavailable},
		{"manager closed", pipeline.ErrManagerClosed, http.StatusServiceUnavailable},
		{"anything else", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		srv.writeFailure(rec, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("%s: expected json error body, got %q", tc.name, ct)
		}
	}
}
