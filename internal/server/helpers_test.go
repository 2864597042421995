package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON_Envelope(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusOK, map[string]int{"n": 1})

	var env map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env["success"] != true {
		t.Errorf("success = %v, want true", env["success"])
	}
	if _, ok := env["error"]; ok {
		t.Error("error should be omitted on success")
	}
	if _, ok := env["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", rr.Header().Get("Content-Type"))
	}
}

func TestWriteErrorWithCode(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteErrorWithCode(rr, http.StatusNotFound, "Company not found", CodeNotFound)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Success || env.Error != "Company not found" || env.Code != CodeNotFound {
		t.Errorf("envelope = %+v", env)
	}
}

func TestRequireMethod(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/companies", nil)
	if RequireMethod(rr, req, http.MethodGet, http.MethodHead) {
		t.Fatal("expected DELETE to be rejected")
	}
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
	if rr.Header().Get("Allow") != "GET, HEAD" {
		t.Errorf("Allow = %q", rr.Header().Get("Allow"))
	}
}

func TestPathParam(t *testing.T) {
	tests := []struct {
		path, prefix, suffix, want string
	}{
		{"/api/companies/MSTR", "/api/companies/", "", "MSTR"},
		{"/api/companies/GLXY.TO", "/api/companies/", "", "GLXY.TO"},
		{"/api/companies/MSTR/extra", "/api/companies/", "", "MSTR"},
		{"/api/companies/", "/api/companies/", "", ""},
		{"/other", "/api/companies/", "", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if got := PathParam(req, tt.prefix, tt.suffix); got != tt.want {
			t.Errorf("PathParam(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query  string
		want   int
		wantOK bool
	}{
		{"", 24, true},
		{"hours=1", 1, true},
		{"hours=8760", 8760, true},
		{"hours=0", 0, false},
		{"hours=8761", 0, false},
		{"hours=-5", 0, false},
		{"hours=1.5", 0, false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/price-history?"+tt.query, nil)
		got, ok := QueryInt(req, "hours", 24, 1, 8760)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("QueryInt(%q) = (%d, %v), want (%d, %v)", tt.query, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestQueryBool(t *testing.T) {
	for q, want := range map[string]bool{"force=true": true, "force=1": true, "force=no": false, "": false} {
		req := httptest.NewRequest(http.MethodPost, "/api/update-prices?"+q, nil)
		if got := QueryBool(req, "force"); got != want {
			t.Errorf("QueryBool(%q) = %v, want %v", q, got, want)
		}
	}
}
