package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStandardClient(t *testing.T) {
	if NewStandardClient(nil).Client != http.DefaultClient {
		t.Error("nil client should wrap http.DefaultClient")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q", r.Header.Get("Content-Type"))
		}
		var body map[string]int
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, `{"n":%d}`, body["n"])
	}))
	defer server.Close()

	client := NewStandardClient(server.Client())
	resp, err := PostJSON(context.Background(), client, server.URL, map[string]int{"n": 4})
	if err != nil {
		t.Fatalf("PostJSON failed: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	body, err := ReadBody(resp, 1024)
	if err != nil {
		t.Fatalf("ReadBody failed: %v", err)
	}
	if string(body) != `{"n":4}` {
		t.Errorf("body = %q", body)
	}
}

func TestReadBodyLimit(t *testing.T) {
	resp := &http.Response{Body: io.NopCloser(strings.NewReader("abcdefgh"))}
	body, err := ReadBody(resp, 3)
	if err != nil {
		t.Fatalf("ReadBody failed: %v", err)
	}
	if string(body) != "abc" {
		t.Errorf("body = %q, want abc", body)
	}
}

func TestMockHTTPClientQueue(t *testing.T) {
	mock := NewMockHTTPClient().
		AddResponse(http.StatusOK, "first").
		AddErrorResponse(errors.New("boom")).
		AddResponse(http.StatusTeapot, "third")

	ctx := context.Background()
	resp, err := PostJSON(ctx, mock, "http://model/completion", map[string]string{"prompt": "p"})
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	if b, _ := ReadBody(resp, 100); string(b) != "first" {
		t.Errorf("first body = %q", b)
	}

	if _, err := PostJSON(ctx, mock, "http://model/completion", nil); err == nil || err.Error() != "boom" {
		t.Errorf("second request error = %v, want boom", err)
	}

	resp, err = PostJSON(ctx, mock, "http://model/completion", nil)
	if err != nil {
		t.Fatalf("third request: %v", err)
	}
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("third status = %d", resp.StatusCode)
	}

	resp, err = PostJSON(ctx, mock, "http://model/completion", nil)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Errorf("drained queue should answer 200, got %v %v", resp, err)
	}

	if mock.RequestCount() != 4 {
		t.Errorf("RequestCount() = %d, want 4", mock.RequestCount())
	}
	if string(mock.RequestBody(0)) != `{"prompt":"p"}` {
		t.Errorf("RequestBody(0) = %q", mock.RequestBody(0))
	}
	if mock.RequestBody(9) != nil {
		t.Error("RequestBody past the end should be nil")
	}
}

func TestMockHTTPClientCancelledContext(t *testing.T) {
	mock := NewMockHTTPClient().AddResponse(http.StatusOK, "unused")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := PostJSON(ctx, mock, "http://model/completion", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMockHTTPClientDoFuncAndDefaultError(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.DefaultError = errors.New("offline")
	if _, err := PostJSON(context.Background(), mock, "http://x", nil); err == nil {
		t.Error("expected default error")
	}

	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody}, nil
	}
	resp, err := PostJSON(context.Background(), mock, "http://x", nil)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Errorf("DoFunc not used: %v %v", resp, err)
	}
}

func TestJSONResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		errMsg string
	}{
		{"error", func(w http.ResponseWriter) { WriteJSONError(w, http.StatusBadRequest, "bad") }, http.StatusBadRequest, "bad"},
		{"method", MethodNotAllowed, http.StatusMethodNotAllowed, "method not allowed"},
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "b") }, http.StatusBadRequest, "b"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "nf") }, http.StatusNotFound, "nf"},
		{"unprocessable", func(w http.ResponseWriter) { UnprocessableEntity(w, "empty") }, http.StatusUnprocessableEntity, "empty"},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "oops") }, http.StatusInternalServerError, "oops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content-type = %s, want application/json", ct)
			}
			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["error"] != tt.errMsg {
				t.Errorf("error = %q, want %q", resp["error"], tt.errMsg)
			}
		})
	}
}

func TestWriteJSONOKAndHTML(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONOK(rec, map[string]int{"count": 42})
	var resp map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if rec.Code != http.StatusOK || resp["count"] != 42 {
		t.Errorf("got %d %v", rec.Code, resp)
	}

	rec = httptest.NewRecorder()
	WriteHTML(rec, []byte("<html></html>"))
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("content-type = %s", ct)
	}
	if rec.Body.String() != "<html></html>" {
		t.Errorf("body = %q", rec.Body.String())
	}
}
