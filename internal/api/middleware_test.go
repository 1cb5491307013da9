package api

import (
	"net/http"
	"testing"
)

func TestShortRequestID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"12345678", "12345678"},
		{"0a1b2c3d-4e5f-6789-abcd-ef0123456789", "0a1b2c3d"},
	}
	for _, tt := range tests {
		if got := shortRequestID(tt.in); got != tt.want {
			t.Errorf("shortRequestID(%q)=%q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestClientSuppliedShortRequestIDHeader(t *testing.T) {
	ts := newTestAPIServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Request-ID", "abc")

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, expected 200", resp.StatusCode)
	}
	if id := resp.Header.Get("X-Request-ID"); id != "abc" {
		t.Fatalf("X-Request-ID=%q, expected the client-supplied value", id)
	}
}
