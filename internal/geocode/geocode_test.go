package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "Warszawa, Marszalkowska" {
			t.Errorf("q = %q", q)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("lookup must send a User-Agent")
		}
		w.Write([]byte(`[{"lat": "52.2297", "lon": "21.0122"}, {"lat": "0", "lon": "0"}]`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	loc, err := client.Lookup(context.Background(), "Warszawa, Marszalkowska")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if loc.Lat != 52.2297 || loc.Lon != 21.0122 {
		t.Errorf("loc = %+v, want the first result", loc)
	}
}

func TestLookupNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	_, err := client.Lookup(context.Background(), "nowhere at all")
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("got %v, want ErrNoResults", err)
	}
}

func TestLookupEmptyAddress(t *testing.T) {
	client := New("http://unused.invalid", time.Second)
	if _, err := client.Lookup(context.Background(), ""); err == nil {
		t.Fatal("empty address must fail without a request")
	}
}

func TestLookupMalformedCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat": "north", "lon": "east"}]`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	if _, err := client.Lookup(context.Background(), "somewhere"); err == nil {
		t.Fatal("malformed coordinates must fail")
	}
}

func TestLookupServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	if _, err := client.Lookup(context.Background(), "somewhere"); err == nil {
		t.Fatal("non-success status must fail")
	}
}
