package extracthtml

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestLoader_Reader verifies reader input is returned unchanged.
// The extract command uses this for saved pages.
func TestLoader_Reader(t *testing.T) {
	t.Parallel()

	l := NewLoader(LoaderOptions{Timeout: time.Second})
	got, err := l.Load(context.Background(), Input{Reader: bytes.NewBufferString("<p>x</p>")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "<p>x</p>" {
		t.Fatalf("unexpected html: %q", got)
	}
}

func TestLoader_SendsBrowserUserAgent(t *testing.T) {
	t.Parallel()

	uaCh := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uaCh <- r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	t.Cleanup(srv.Close)

	l := NewLoader(LoaderOptions{Timeout: 2 * time.Second})
	got, err := l.Load(context.Background(), Input{URL: srv.URL})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "<html>ok</html>" {
		t.Fatalf("body: got %q", got)
	}
	if ua := <-uaCh; ua != DefaultUserAgent {
		t.Fatalf("user agent: want %q got %q", DefaultUserAgent, ua)
	}
}

// TestLoader_URL_Non2xx verifies the status code and a body snippet are kept
// on the typed error.
func TestLoader_URL_Non2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	l := NewLoader(LoaderOptions{Timeout: 2 * time.Second})
	_, err := l.Load(context.Background(), Input{URL: srv.URL})

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T %v", err, err)
	}
	if fe.StatusCode != http.StatusForbidden {
		t.Fatalf("status: got %d", fe.StatusCode)
	}
	if !strings.Contains(err.Error(), "http status 403") || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoader_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	l := NewLoader(LoaderOptions{Timeout: time.Second})
	_, err := l.Fetch(context.Background(), url)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T %v", err, err)
	}
	if fe.Err == nil || fe.StatusCode != 0 {
		t.Fatalf("expected transport failure, got %#v", fe)
	}
}

func TestLoader_DecodesDeclaredCharset(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("Atl\xe9tico"))
	}))
	t.Cleanup(srv.Close)

	l := NewLoader(LoaderOptions{Timeout: 2 * time.Second})
	got, err := l.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got != "Atlético" {
		t.Fatalf("decoded body: got %q", got)
	}
}
