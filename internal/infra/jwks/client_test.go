package jwks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpclient "github.com/astro-web3/coffee-drinks/pkg/http"
)

func TestRemoteSource_Document(t *testing.T) {
	jwk, _ := rsaJWK(t, "k1")
	doc := encodeSet(t, jwk)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if got := r.Header.Get("Accept"); got != "application/jwk-set+json, application/json" {
			t.Errorf("Accept = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	}))
	defer srv.Close()

	src := NewRemoteSource(srv.URL, httpclient.NewClient())
	got, err := src.Document(context.Background())
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if string(got) != string(doc) {
		t.Errorf("Document() = %s, want %s", got, doc)
	}
}

func TestRemoteSource_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewRemoteSource(srv.URL, httpclient.NewClient(httpclient.WithRetryCount(0)))
	_, err := src.Document(context.Background())
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Document() error = %v, want ErrFetchFailed", err)
	}
}

func TestRemoteSource_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	src := NewRemoteSource(srv.URL, httpclient.NewClient(
		httpclient.WithTimeout(20*time.Millisecond),
		httpclient.WithRetryCount(1),
		httpclient.WithRetryWait(time.Millisecond, 2*time.Millisecond),
	))

	start := time.Now()
	_, err := src.Document(context.Background())
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Document() error = %v, want ErrFetchFailed", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Document() took %v, want bounded by timeout", elapsed)
	}
}

func TestRemoteSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src := NewRemoteSource(url, httpclient.NewClient(httpclient.WithRetryCount(0)))
	if _, err := src.Document(context.Background()); !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Document() error = %v, want ErrFetchFailed", err)
	}
}
