package gcs

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func staticToken(token string) *tokenSource {
	return &tokenSource{fetch: func(context.Context) (string, time.Time, error) {
		return token, time.Now().Add(time.Hour), nil
	}}
}

func TestTokenSourceCachesUntilNearExpiry(t *testing.T) {
	t.Parallel()

	calls := 0
	ts := &tokenSource{fetch: func(context.Context) (string, time.Time, error) {
		calls++
		return "token", time.Now().Add(time.Hour), nil
	}}

	for i := 0; i < 3; i++ {
		if _, err := ts.Token(context.Background()); err != nil {
			t.Fatalf("token: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single fetch, got %d", calls)
	}

	ts.expiry = time.Now().Add(30 * time.Second)
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("token refresh: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected refresh near expiry, got %d fetches", calls)
	}
}

func TestUploadSetsAuthAndContentType(t *testing.T) {
	t.Parallel()

	client := &Client{
		defaultBucket: "bucket",
		tokenSource:   staticToken("token"),
		httpClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) *http.Response {
			if req.Method != http.MethodPost {
				t.Fatalf("expected POST, got %s", req.Method)
			}
			if req.Header.Get("Authorization") != "Bearer token" {
				t.Fatalf("unexpected auth %s", req.Header.Get("Authorization"))
			}
			if req.Header.Get("Content-Type") != "image/png" {
				t.Fatalf("unexpected content type %s", req.Header.Get("Content-Type"))
			}
			if !strings.Contains(req.URL.RawQuery, "name=items%2Fphoto.png") {
				t.Fatalf("object name missing from query: %s", req.URL.RawQuery)
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("{}")),
				Header:     http.Header{},
			}
		})},
	}

	bucket := client.BucketHandle("")
	if err := bucket.Upload(context.Background(), "items/photo.png", "image/png", strings.NewReader("png")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
}

func TestUploadPropagatesFailure(t *testing.T) {
	t.Parallel()

	client := &Client{
		defaultBucket: "bucket",
		tokenSource:   staticToken("token"),
		httpClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) *http.Response {
			return &http.Response{
				StatusCode: http.StatusForbidden,
				Status:     "403 Forbidden",
				Body:       io.NopCloser(strings.NewReader("quota")),
				Header:     http.Header{},
			}
		})},
	}

	err := client.BucketHandle("bucket").Upload(context.Background(), "items/photo.png", "image/png", strings.NewReader("png"))
	if err == nil {
		t.Fatal("expected upload error")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteTreatsNotFoundAsSuccess(t *testing.T) {
	t.Parallel()

	client := &Client{
		defaultBucket: "bucket",
		tokenSource:   staticToken("token"),
		httpClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) *http.Response {
			if req.Method != http.MethodDelete {
				t.Fatalf("expected DELETE, got %s", req.Method)
			}
			return &http.Response{
				StatusCode: http.StatusNotFound,
				Body:       io.NopCloser(strings.NewReader("")),
				Header:     http.Header{},
			}
		})},
	}

	if err := client.BucketHandle("bucket").Delete(context.Background(), "items/photo.png"); err != nil {
		t.Fatalf("Delete on missing object should succeed: %v", err)
	}
}

func TestPublicURL(t *testing.T) {
	t.Parallel()

	client := &Client{defaultBucket: "equipqr-media"}
	got := client.BucketHandle("").PublicURL("items/abc/photo.png")
	want := "https://storage.googleapis.com/equipqr-media/items/abc/photo.png"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
