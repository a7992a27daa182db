package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	httpclient "github.com/astro-web3/coffee-drinks/pkg/http"
)

func TestClient_Get_DecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"flat white"}`))
	}))
	defer srv.Close()

	var out struct {
		Name string `json:"name"`
	}
	resp, err := httpclient.NewClient().Get(context.Background(), srv.URL, httpclient.WithResult(&out))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode())
	}
	if out.Name != "flat white" {
		t.Errorf("name = %q, want flat white", out.Name)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := httpclient.NewClient(
		httpclient.WithRetryCount(2),
		httpclient.WithRetryWait(time.Millisecond, 5*time.Millisecond),
	)
	resp, err := client.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode())
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := httpclient.NewClient(
		httpclient.WithTimeout(20*time.Millisecond),
		httpclient.WithRetryCount(0),
	)
	if _, err := client.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("expected timeout error")
	}
}
