package healthprobe

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func TestNew(t *testing.T) {
	hc := New()

	if time.Since(hc.startTime) > time.Second {
		t.Errorf("start time is too old: %v", hc.startTime)
	}
	if hc.IsReady() {
		t.Error("HealthChecker should not be ready by default")
	}
}

func TestHealth_AlwaysOK(t *testing.T) {
	hc := New()

	rec := httptest.NewRecorder()
	hc.Health()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("expected healthy, got %s", resp.Status)
	}
}

func TestReady_AfterFirstSuccessfulSync(t *testing.T) {
	tests := []struct {
		name     string
		syncs    []error
		wantCode int
		wantErr  string
	}{
		{name: "no_sync", wantCode: http.StatusServiceUnavailable},
		{name: "failed_sync", syncs: []error{errors.New("down")}, wantCode: http.StatusServiceUnavailable, wantErr: "down"},
		{name: "successful_sync", syncs: []error{nil}, wantCode: http.StatusOK},
		{name: "failure_after_success", syncs: []error{nil, errors.New("flaky")}, wantCode: http.StatusOK, wantErr: "flaky"},
		{name: "recovered", syncs: []error{errors.New("down"), nil}, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New()
			for _, err := range tt.syncs {
				hc.RecordSync(err)
			}

			rec := httptest.NewRecorder()
			hc.Ready()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}

			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.LastError != tt.wantErr {
				t.Errorf("expected lastError %q, got %q", tt.wantErr, resp.LastError)
			}
		})
	}
}

func TestSetReady(t *testing.T) {
	hc := New()

	hc.SetReady(true)
	if !hc.IsReady() {
		t.Error("expected ready")
	}

	hc.SetReady(false)
	if hc.IsReady() {
		t.Error("expected not ready")
	}
}
