package imagescrape

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/sized.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", "1234")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/empty.gif", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/unsized.jpg", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/no-content.png", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/bad-length.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "lots")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/missing.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "512")
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/broken.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "512")
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/moved.png", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/sized.png", http.StatusFound)
	})
	mux.HandleFunc("/loop.png", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop.png", http.StatusFound)
	})
	mux.HandleFunc("/slow.png", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.Header().Set("Content-Length", "999")
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func testSizeFetcher(timeout time.Duration) *SizeFetcher {
	return NewSizeFetcher(ClientOptions{Transport: testTransport(), Timeout: timeout})
}

func TestSizeFetcher_FetchSize(t *testing.T) {
	ts := newImageServer(t)

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name string
		url  string
		want int64
	}{
		{name: "content length reported", url: ts.URL + "/sized.png", want: 1234},
		{name: "explicit zero length", url: ts.URL + "/empty.gif", want: 0},
		{name: "missing content length", url: ts.URL + "/unsized.jpg", want: 0},
		{name: "204 without length", url: ts.URL + "/no-content.png", want: 0},
		{name: "unparseable content length", url: ts.URL + "/bad-length.png", want: 0},
		{name: "404 ignores content length", url: ts.URL + "/missing.png", want: 0},
		{name: "500 ignores content length", url: ts.URL + "/broken.png", want: 0},
		{name: "redirect followed", url: ts.URL + "/moved.png", want: 1234},
		{name: "redirect loop", url: ts.URL + "/loop.png", want: 0},
		{name: "connection refused", url: closedURL + "/a.png", want: 0},
		{name: "malformed URL", url: "://bad-url", want: 0},
		{name: "unsupported scheme", url: "ftp://files.test/a.png", want: 0},
	}

	f := testSizeFetcher(2 * time.Second)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.FetchSize(context.Background(), tt.url); got != tt.want {
				t.Errorf("FetchSize(%s) = %d, want %d", tt.url, got, tt.want)
			}
		})
	}
}

func TestSizeFetcher_UsesHEAD(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		if r.Header.Get("User-Agent") != "SizeBot/3" {
			t.Errorf("User-Agent = %q, want %q", r.Header.Get("User-Agent"), "SizeBot/3")
		}
		w.Header().Set("Content-Length", "42")
	}))
	defer ts.Close()

	f := NewSizeFetcher(ClientOptions{Transport: testTransport(), Timeout: time.Second, UserAgent: "SizeBot/3"})
	if got := f.FetchSize(context.Background(), ts.URL+"/x.png"); got != 42 {
		t.Errorf("FetchSize = %d, want 42", got)
	}
}

func TestSizeFetcher_ClientTimeout(t *testing.T) {
	ts := newImageServer(t)

	start := time.Now()
	got := testSizeFetcher(50*time.Millisecond).FetchSize(context.Background(), ts.URL+"/slow.png")
	if got != 0 {
		t.Errorf("FetchSize = %d, want 0 after timeout", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("FetchSize took %s, want it cut short by the client timeout", elapsed)
	}
}

func TestSizeFetcher_ContextDeadline(t *testing.T) {
	ts := newImageServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if got := testSizeFetcher(5*time.Second).FetchSize(ctx, ts.URL+"/slow.png"); got != 0 {
		t.Errorf("FetchSize = %d, want 0 after context deadline", got)
	}
}

func TestSizeFetcher_BlocksPrivateAddresses(t *testing.T) {
	ts := newImageServer(t)

	f := NewSizeFetcher(ClientOptions{Transport: NewTransport(TransportOptions{}), Timeout: time.Second})
	if got := f.FetchSize(context.Background(), ts.URL+"/sized.png"); got != 0 {
		t.Errorf("FetchSize = %d, want 0 for a blocked address", got)
	}
}

func TestSizeFetcher_ReusesConnections(t *testing.T) {
	var conns atomic.Int32
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "7")
	}))
	ts.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	ts.Start()
	defer ts.Close()

	f := testSizeFetcher(time.Second)
	for i := range 5 {
		if got := f.FetchSize(context.Background(), fmt.Sprintf("%s/%d.png", ts.URL, i)); got != 7 {
			t.Fatalf("FetchSize = %d, want 7", got)
		}
	}
	if n := conns.Load(); n != 1 {
		t.Errorf("opened %d connections for sequential lookups, want 1", n)
	}
}
