package upstream

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchAttendanceBareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token"); got != "secret" {
			t.Errorf("token = %q, want secret", got)
		}
		if got := r.URL.Query().Get("frm"); got != "2026-08-01" {
			t.Errorf("frm = %q, want 2026-08-01", got)
		}
		w.Write([]byte(`[{"Trno":"T1","Fajar_Namaz":"p"},{"Trno":"T2","Fajar_Namaz":"a"}]`))
	}))
	defer server.Close()

	client := NewClientWith(server.URL, "secret", 2*time.Second)
	rows := client.FetchAttendance(EndpointFajr, "2026-08-01", "2026-08-14")
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0]["Trno"] != "T1" {
		t.Errorf("first row Trno = %v, want T1", rows[0]["Trno"])
	}
}

func TestFetchAttendanceResultsWrapper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"Trno":"T3"}]}`))
	}))
	defer server.Close()

	client := NewClientWith(server.URL, "secret", 2*time.Second)
	rows := client.FetchAttendance(EndpointDua, "2026-08-01", "2026-08-14")
	if len(rows) != 1 || rows[0]["Trno"] != "T3" {
		t.Errorf("rows = %v, want the wrapped results array", rows)
	}
}

func TestFetchAttendanceMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer server.Close()

	client := NewClientWith(server.URL, "secret", 2*time.Second)
	rows := client.FetchAttendance(EndpointFajr, "2026-08-01", "2026-08-14")
	if len(rows) != 0 {
		t.Errorf("len = %d, want 0 for a malformed body", len(rows))
	}
}

func TestFetchAttendanceNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClientWith(server.URL, "secret", 2*time.Second)
	rows := client.FetchAttendance(EndpointFajr, "2026-08-01", "2026-08-14")
	if len(rows) != 0 {
		t.Errorf("len = %d, want 0 on non-2xx", len(rows))
	}
}

func TestFetchAttendanceUnreachable(t *testing.T) {
	client := NewClientWith("http://127.0.0.1:1", "secret", 200*time.Millisecond)
	rows := client.FetchAttendance(EndpointFajr, "2026-08-01", "2026-08-14")
	if rows == nil || len(rows) != 0 {
		t.Errorf("rows = %v, want an empty non-nil slice", rows)
	}
}

func TestParseResponseShapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{"bare array", `[{"a":1}]`, 1},
		{"empty array", `[]`, 0},
		{"wrapped", `{"results":[{"a":1},{"b":2}]}`, 2},
		{"wrapped empty", `{"results":[]}`, 0},
		{"object without results", `{"detail":"no data"}`, 0},
		{"scalar", `42`, 0},
		{"garbage", `not json`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := parseResponse(EndpointFajr, []byte(tt.body))
			if len(rows) != tt.expected {
				t.Errorf("len = %d, want %d", len(rows), tt.expected)
			}
		})
	}
}
