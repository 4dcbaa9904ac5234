package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestClassifyRelaysBodyVerbatim(t *testing.T) {
	const upstream = `{"classification":"Dog","animalInfo":"Domestic canine","isDangerous":false}`

	var gotBody []byte
	var gotContentType, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(upstream + "\n"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client(), zap.NewNop())
	raw, err := client.Classify(context.Background(), NewRequest("data:image/png;base64,AAA"))
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if string(raw) != upstream {
		t.Fatalf("expected verbatim body %s, got %s", upstream, raw)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Fatalf("expected application/json, got %q", gotContentType)
	}
	if string(gotBody) != `{"image":"data:image/png;base64,AAA"}` {
		t.Fatalf("unexpected forwarded body: %s", gotBody)
	}
}

func TestClassifyForwardsMissingImageAsEmptyObject(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"classification":"No animal detected","animalInfo":null,"isDangerous":null}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, nil, zap.NewNop())
	if _, err := client.Classify(context.Background(), Request{}); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if string(gotBody) != `{}` {
		t.Fatalf("expected {}, got %s", gotBody)
	}
}

func TestClassifyReturnsStatusErrorOnNon2xx(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"detail":"cannot identify image file"}`))
		}))

		client := NewHTTPClient(server.URL, server.Client(), zap.NewNop())
		_, err := client.Classify(context.Background(), NewRequest("data:image/png;base64,AAA"))
		server.Close()

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("status %d: expected StatusError, got %v", code, err)
		}
		if statusErr.StatusCode != code {
			t.Fatalf("expected status %d, got %d", code, statusErr.StatusCode)
		}
		if Kind(err) != "upstream_status" {
			t.Fatalf("unexpected kind %q", Kind(err))
		}
	}
}

func TestClassifyUnreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	client := NewHTTPClient("http://"+addr+"/classify", nil, zap.NewNop())
	_, err = client.Classify(context.Background(), NewRequest("data:image/png;base64,AAA"))
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if Kind(err) != "unreachable" {
		t.Fatalf("unexpected kind %q", Kind(err))
	}
}

func TestClassifyMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client(), zap.NewNop())
	_, err := client.Classify(context.Background(), NewRequest("data:image/png;base64,AAA"))
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestClassifyTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewHTTPClient(server.URL, server.Client(), zap.NewNop())
	_, err := client.Classify(ctx, NewRequest("data:image/png;base64,AAA"))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if Kind(err) != "timeout" {
		t.Fatalf("unexpected kind %q", Kind(err))
	}
}

func TestClassifyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewHTTPClient("http://127.0.0.1:1/classify", nil, zap.NewNop())
	_, err := client.Classify(ctx, NewRequest("data:image/png;base64,AAA"))
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
}

func TestDecodeResultKeepsNulls(t *testing.T) {
	res, err := DecodeResult(json.RawMessage(`{"classification":"No animal detected","animalInfo":null,"isDangerous":null}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Classification != NoAnimalDetected || res.AnimalInfo != nil || res.IsDangerous != nil {
		t.Fatalf("unexpected result: %+v", res)
	}

	for _, raw := range []string{`[1,2]`, `null`} {
		if _, err := DecodeResult(json.RawMessage(raw)); !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("%s: expected ErrMalformedResponse, got %v", raw, err)
		}
	}
}

func TestRequestImageString(t *testing.T) {
	if s, ok := NewRequest("data:,x").ImageString(); !ok || s != "data:,x" {
		t.Fatalf("unexpected image string %q %v", s, ok)
	}
	if _, ok := (Request{Image: json.RawMessage(`42`)}).ImageString(); ok {
		t.Fatal("number should not be reported as a string")
	}
	if _, ok := (Request{}).ImageString(); ok {
		t.Fatal("missing image should not be reported as a string")
	}
}
