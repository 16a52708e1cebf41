package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	// MaxRequestBodySize is the maximum allowed request body size (1MB).
	MaxRequestBodySize = 1 << 20
)

type decodeOptions struct {
	allowUnknown bool
	maxBytes     int64
}

// DecodeOption adjusts DecodeJSON.
type DecodeOption func(*decodeOptions)

// AllowUnknownFields accepts fields the target type does not declare.
func AllowUnknownFields() DecodeOption {
	return func(o *decodeOptions) { o.allowUnknown = true }
}

// WithMaxBytes overrides MaxRequestBodySize.
func WithMaxBytes(n int64) DecodeOption {
	return func(o *decodeOptions) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// DecodeJSON decodes a single JSON value from the request body into T.
// The body is size-limited and closed. Unknown fields are rejected unless
// AllowUnknownFields is given.
func DecodeJSON[T any](r *http.Request, opts ...DecodeOption) (T, error) {
	var zeroValue T

	o := decodeOptions{maxBytes: MaxRequestBodySize}
	for _, opt := range opts {
		opt(&o)
	}

	r.Body = http.MaxBytesReader(nil, r.Body, o.maxBytes)
	defer func() {
		_ = r.Body.Close()
	}()

	decoder := json.NewDecoder(r.Body)
	if !o.allowUnknown {
		decoder.DisallowUnknownFields()
	}

	var v T
	if err := decoder.Decode(&v); err != nil {
		var syntaxErr *json.SyntaxError
		var unmarshalErr *json.UnmarshalTypeError
		var maxBytesErr *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxErr):
			return zeroValue, fmt.Errorf("malformed JSON at position %d", syntaxErr.Offset)
		case errors.As(err, &unmarshalErr):
			return zeroValue, fmt.Errorf("invalid value for field %q", unmarshalErr.Field)
		case errors.As(err, &maxBytesErr):
			return zeroValue, fmt.Errorf("request body too large (max %d bytes)", o.maxBytes)
		case errors.Is(err, io.EOF):
			return zeroValue, errors.New("request body is empty")
		case errors.Is(err, io.ErrUnexpectedEOF):
			return zeroValue, errors.New("request body is truncated")
		default:
			return zeroValue, fmt.Errorf("failed to decode JSON: %w", err)
		}
	}

	if decoder.More() {
		return zeroValue, errors.New("request body contains multiple JSON objects")
	}

	return v, nil
}
