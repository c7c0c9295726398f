package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scene.report/internal/httputil"
)

func TestCompleteSendsRequest(t *testing.T) {
	mock := httputil.NewMockHTTPClient().AddResponse(http.StatusOK, `{"content":"Feature: merge","tokens_predicted":12}`)
	c := NewClient("http://localhost:8080/completion", mock)
	c.MaxTokens = 500
	c.Temperature = 0.2

	out, err := c.Complete(context.Background(), "<|user|>hi")
	require.NoError(t, err)
	assert.Equal(t, "Feature: merge", out)

	require.Equal(t, 1, mock.RequestCount())
	req := mock.Requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "http://localhost:8080/completion", req.URL.String())

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(mock.RequestBody(0), &body))
	assert.Equal(t, map[string]interface{}{"prompt": "<|user|>hi", "max_tokens": 500.0, "temperature": 0.2}, body)
}

func TestPingOmitsTemperature(t *testing.T) {
	mock := httputil.NewMockHTTPClient().AddResponse(http.StatusOK, `{"content":"ok"}`)
	c := NewClient("http://model", mock)
	out, err := c.Ping(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.JSONEq(t, `{"prompt":"ping","max_tokens":100}`, string(mock.RequestBody(0)))
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *httputil.MockHTTPClient)
		check func(t *testing.T, err error)
	}{
		{
			name:  "status",
			setup: func(m *httputil.MockHTTPClient) { m.AddResponse(http.StatusServiceUnavailable, "loading model\n") },
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
				assert.Equal(t, "loading model", se.Body)
				assert.Contains(t, err.Error(), "503")
			},
		},
		{
			name:  "empty content",
			setup: func(m *httputil.MockHTTPClient) { m.AddResponse(http.StatusOK, `{"content":"  "}`) },
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrEmptyCompletion) },
		},
		{
			name:  "missing content",
			setup: func(m *httputil.MockHTTPClient) { m.AddResponse(http.StatusOK, `{}`) },
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrEmptyCompletion) },
		},
		{
			name:  "bad json",
			setup: func(m *httputil.MockHTTPClient) { m.AddResponse(http.StatusOK, `not json`) },
			check: func(t *testing.T, err error) { assert.ErrorContains(t, err, "decode") },
		},
		{
			name:  "transport",
			setup: func(m *httputil.MockHTTPClient) { m.AddErrorResponse(errors.New("connection refused")) },
			check: func(t *testing.T, err error) { assert.ErrorContains(t, err, "connection refused") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := httputil.NewMockHTTPClient()
			tt.setup(mock)
			_, err := NewClient("http://model", mock).Complete(context.Background(), "p")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := NewClient(server.URL, httputil.NewStandardClient(server.Client()))
	c.Timeout = 50 * time.Millisecond
	_, err := c.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCompleteAgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		httputil.WriteJSONOK(w, Response{Content: "echo: " + req.Prompt})
	}))
	defer server.Close()

	out, err := NewClient(server.URL, nil).Complete(context.Background(), "scene")
	require.NoError(t, err)
	assert.Equal(t, "echo: scene", out)
}
