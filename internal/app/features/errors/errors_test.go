package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/orghub/internal/app/system/membership"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"invalid input", fmt.Errorf("join code is required: %w", membership.ErrInvalidInput), 400, "join code is required: invalid input"},
		{"bad code", fmt.Errorf("lookup: %w", membership.ErrOrgNotFound), 404, "invalid join code"},
		{"no user", membership.ErrUserNotFound, 404, "user not found"},
		{"not member", membership.ErrNotMember, 403, "not a member of this organization"},
		{"dup email", membership.ErrDuplicateEmail, 409, "a user with this email already exists"},
		{"timeout", fmt.Errorf("op: %w", membership.ErrStoreTimeout), 503, "temporarily unavailable; please retry"},
		{"unavailable", membership.ErrStoreUnavailable, 503, "temporarily unavailable; please retry"},
		{"conflict", membership.ErrConflict, 503, "temporarily unavailable; please retry"},
		{"codes exhausted", membership.ErrJoinCodeExhausted, 503, "temporarily unavailable; please retry"},
		{"unknown", fmt.Errorf("boom"), 500, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := Status(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if msg != tt.wantMsg {
				t.Errorf("msg = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestErrorLogger_Write(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	el := NewErrorLogger(zap.New(core))

	r := httptest.NewRequest(http.MethodPost, "/organizations/join", nil)

	rec := httptest.NewRecorder()
	el.Write(rec, r, membership.ErrStoreTimeout)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
	}
	if got := logs.FilterMessage("request failed").Len(); got != 1 {
		t.Errorf("logged %d failures, want 1", got)
	}

	rec = httptest.NewRecorder()
	el.Write(rec, r, membership.ErrOrgNotFound)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var b struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Error != "invalid join code" {
		t.Errorf("error = %q, want %q", b.Error, "invalid join code")
	}
	if got := logs.FilterMessage("request failed").Len(); got != 1 {
		t.Errorf("client errors should not be logged as failures")
	}
}

func TestErrorLogger_WritePartial(t *testing.T) {
	el := NewErrorLogger(zap.NewNop())
	r := httptest.NewRequest(http.MethodPost, "/organizations", nil)
	rec := httptest.NewRecorder()

	el.WritePartial(rec, r, membership.ErrStoreUnavailable, "organization", map[string]string{"join_code": "ABC123"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
	}
	var b struct {
		Error        string            `json:"error"`
		Organization map[string]string `json:"organization"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Error != "temporarily unavailable; please retry" {
		t.Errorf("error = %q", b.Error)
	}
	if b.Organization["join_code"] != "ABC123" {
		t.Errorf("organization = %v, want join_code ABC123", b.Organization)
	}
}
