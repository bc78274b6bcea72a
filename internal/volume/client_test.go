package volume

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPutBlobSuccess(t *testing.T) {
	var gotMD5, gotPath string
	var gotLen int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMD5 = r.Header.Get("Content-MD5")
		gotLen = r.ContentLength
		body, _ := io.ReadAll(r.Body)
		if string(body) != "bigswag" {
			t.Errorf("server received body %q, want bigswag", body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(10, 5*time.Second)
	host := strings.TrimPrefix(srv.URL, "http://")

	err := c.PutBlob(context.Background(), host, "/ab/cd/xyz", 7, "deadbeef", strings.NewReader("bigswag"))
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	if gotPath != "/ab/cd/xyz" {
		t.Fatalf("server saw path %q, want /ab/cd/xyz", gotPath)
	}
	if gotMD5 != "deadbeef" {
		t.Fatalf("server saw Content-MD5 %q, want deadbeef", gotMD5)
	}
	if gotLen != 7 {
		t.Fatalf("server saw Content-Length %d, want 7", gotLen)
	}
}

func TestPutBlobBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(10, 5*time.Second)
	host := strings.TrimPrefix(srv.URL, "http://")

	err := c.PutBlob(context.Background(), host, "/ab/cd/xyz", 1, "hash", strings.NewReader("x"))
	if err == nil {
		t.Fatalf("PutBlob: expected error on 500 response")
	}
}

func TestDeleteBlobSuccess(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(10, 5*time.Second)
	host := strings.TrimPrefix(srv.URL, "http://")

	if err := c.DeleteBlob(context.Background(), host, "/ab/cd/xyz"); err != nil {
		t.Fatalf("DeleteBlob: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Fatalf("server saw method %q, want DELETE", gotMethod)
	}
}

func TestGetBlobStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("bigswag"))
	}))
	defer srv.Close()

	c := New(10, 5*time.Second)
	host := strings.TrimPrefix(srv.URL, "http://")

	rc, _, err := c.GetBlob(context.Background(), host, "/ab/cd/xyz")
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(body) != "bigswag" {
		t.Fatalf("GetBlob body = %q, want bigswag", body)
	}
}

func TestUnreachableVolumeIsTransportError(t *testing.T) {
	c := New(10, 200*time.Millisecond)
	err := c.PutBlob(context.Background(), "127.0.0.1:1", "/x", 1, "h", strings.NewReader("x"))
	if err == nil {
		t.Fatalf("PutBlob: expected transport error for unreachable volume")
	}
}
