package httpx

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

type testRequest struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Hits int    `json:"hits"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		opts        []DecodeOption
		errContains string
		want        testRequest
	}{
		{
			name: "valid JSON",
			body: `{"key":"abc","url":"https://example.com","hits":3}`,
			want: testRequest{Key: "abc", URL: "https://example.com", Hits: 3},
		},
		{
			name:        "empty body",
			body:        "",
			errContains: "request body is empty",
		},
		{
			name:        "truncated body",
			body:        `{"key":"abc","url":`,
			errContains: "request body is truncated",
		},
		{
			name:        "malformed JSON - missing quote",
			body:        `{"key":"abc,"url":"https://example.com"}`,
			errContains: "malformed JSON",
		},
		{
			name:        "malformed JSON - trailing comma",
			body:        `{"key":"abc","url":"https://example.com",}`,
			errContains: "malformed JSON",
		},
		{
			name:        "unknown field rejected by default",
			body:        `{"key":"abc","url":"https://example.com","note":"x"}`,
			errContains: "unknown",
		},
		{
			name: "unknown field allowed",
			body: `{"key":"abc","url":"https://example.com","note":"x"}`,
			opts: []DecodeOption{AllowUnknownFields()},
			want: testRequest{Key: "abc", URL: "https://example.com"},
		},
		{
			name:        "invalid type for field",
			body:        `{"key":"abc","url":"https://example.com","hits":"three"}`,
			errContains: `invalid value for field "hits"`,
		},
		{
			name:        "multiple JSON objects",
			body:        `{"key":"abc"}{"key":"xyz"}`,
			errContains: "multiple JSON objects",
		},
		{
			name:        "trailing garbage",
			body:        `{"key":"abc","url":"https://example.com"}extra`,
			errContains: "multiple JSON objects",
		},
		{
			name:        "body too large",
			body:        `{"url":"` + strings.Repeat("x", MaxRequestBodySize+1) + `"}`,
			errContains: "request body too large",
		},
		{
			name:        "custom size limit",
			body:        `{"key":"abc","url":"https://example.com"}`,
			opts:        []DecodeOption{WithMaxBytes(16)},
			errContains: "max 16 bytes",
		},
		{
			name: "non-positive size limit ignored",
			body: `{"key":"abc"}`,
			opts: []DecodeOption{WithMaxBytes(0)},
			want: testRequest{Key: "abc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/new-link", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			got, err := DecodeJSON[testRequest](req, tt.opts...)

			if tt.errContains != "" {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error to contain %q, got %q", tt.errContains, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeJSON() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON_ZeroValueOnError(t *testing.T) {
	req := httptest.NewRequest("POST", "/new-link", strings.NewReader(`{"key":"abc","hits":"x"}`))

	result, err := DecodeJSON[testRequest](req)

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if result != (testRequest{}) {
		t.Errorf("expected zero value on error, got %+v", result)
	}
}

func TestDecodeJSON_ClosesBody(t *testing.T) {
	body := &testReadCloser{
		Reader: strings.NewReader(`{"key":"abc","url":"https://example.com"}`),
	}

	req := httptest.NewRequest("POST", "/new-link", body)

	if _, err := DecodeJSON[testRequest](req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !body.closed {
		t.Error("expected body to be closed")
	}
}

// testReadCloser records whether the body was closed.
type testReadCloser struct {
	io.Reader
	closed bool
}

func (t *testReadCloser) Close() error {
	t.closed = true
	return nil
}
