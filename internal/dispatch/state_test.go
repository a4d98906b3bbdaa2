package dispatch

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseState_TracksFirstResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	rs := NewResponseState(rec)

	if rs.Written() {
		t.Fatal("fresh state should not be written")
	}

	rs.WriteHeader(http.StatusNotFound)
	if !rs.Written() {
		t.Error("WriteHeader should mark the response started")
	}
	if rs.Status() != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rs.Status())
	}

	// A second status is ignored, not overwritten.
	rs.WriteHeader(http.StatusOK)
	if rs.Status() != http.StatusNotFound {
		t.Errorf("Status after second WriteHeader = %d, want 404", rs.Status())
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("recorder code = %d, want 404", rec.Code)
	}
}

func TestResponseState_WriteImpliesOK(t *testing.T) {
	rec := httptest.NewRecorder()
	rs := NewResponseState(rec)

	n, err := rs.Write([]byte("hello"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 5 {
		t.Errorf("Write = %d bytes, want 5", n)
	}
	if !rs.Written() {
		t.Error("Write should mark the response started")
	}
	if rs.Status() != http.StatusOK {
		t.Errorf("Status = %d, want 200", rs.Status())
	}
	if rs.BytesWritten() != 5 {
		t.Errorf("BytesWritten = %d, want 5", rs.BytesWritten())
	}

	if _, err := rs.Write([]byte(" world")); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}
	if rs.BytesWritten() != 11 {
		t.Errorf("BytesWritten = %d, want 11", rs.BytesWritten())
	}
	if got := rec.Body.String(); got != "hello world" {
		t.Errorf("body = %q", got)
	}
}
