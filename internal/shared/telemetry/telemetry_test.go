package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMetricsServer(t *testing.T) {
	srv := MetricsServer("9464")

	if srv.Addr != ":9464" {
		t.Errorf("Addr = %q, want %q", srv.Addr, ":9464")
	}

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestHTTPClient_PropagatesRequests(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer upstream.Close()

	client := HTTPClient(2 * time.Second)
	if client.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want %v", client.Timeout, 2*time.Second)
	}

	resp, err := client.Get(upstream.URL)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTeapot)
	}
}
