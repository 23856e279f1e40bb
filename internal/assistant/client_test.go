package assistant

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
)

func completion(content string) GenerateResponse {
	return GenerateResponse{
		ID:      "gen-1",
		Choices: []Choice{{Message: Message{Role: "assistant", Content: content}}},
		Usage:   Usage{TotalTokens: 42},
	}
}

func TestClient_Generate(t *testing.T) {
	var got GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("X-Request-Id", "req-7")
		_ = json.NewEncoder(w).Encode(completion("hello"))
	}))
	defer srv.Close()

	c := NewClient("secret", srv.URL, time.Second)
	resp, err := c.Generate(context.Background(), GenerateRequest{
		Model:    "test/model",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Choices[0].Message.Content)
	assert.Equal(t, "req-7", resp.RequestID)
	assert.Equal(t, "test/model", got.Model)
}

func TestClient_MissingCredentials(t *testing.T) {
	c := NewClient("", "http://127.0.0.1:1", time.Second)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		check   func(t *testing.T, err error)
	}{
		{
			name:   "Unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				var target *AuthError
				assert.True(t, errors.As(err, &target))
			},
		},
		{
			name:    "Rate limited",
			status:  http.StatusTooManyRequests,
			headers: map[string]string{"Retry-After": "7"},
			check: func(t *testing.T, err error) {
				var target *RateLimitError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, 7*time.Second, target.RetryAfter)
			},
		},
		{
			name:   "Bad request",
			status: http.StatusBadRequest,
			check: func(t *testing.T, err error) {
				var target *BadRequestError
				assert.True(t, errors.As(err, &target))
			},
		},
		{
			name:   "Server error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				var target *ServerError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, "upstream down", target.Message)
				assert.Equal(t, "gateway", target.Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "upstream down", "code": "gateway"},
				})
			}))
			defer srv.Close()

			_, err := NewClient("k", srv.URL, time.Second).Generate(context.Background(), GenerateRequest{Model: "m"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := NewClient("k", srv.URL, time.Second).Generate(context.Background(), GenerateRequest{Model: "m"})
	assert.ErrorContains(t, err, "decode response")
}

func TestParseRetryAfterSeconds(t *testing.T) {
	secs, err := parseRetryAfterSeconds("12")
	require.NoError(t, err)
	assert.Equal(t, 12, secs)

	_, err = parseRetryAfterSeconds("")
	assert.Error(t, err)

	future := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	secs, err = parseRetryAfterSeconds(future)
	require.NoError(t, err)
	assert.InDelta(t, 90, secs, 2)
}
