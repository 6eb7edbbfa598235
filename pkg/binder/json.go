package binder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"
)

// DefaultMaxJSONSize is the default maximum size for JSON request bodies (64KB).
const DefaultMaxJSONSize = 64 << 10

// Bind decodes a request into v.
type Bind func(r *http.Request, v any) error

// JSON creates a strict JSON binder: unknown fields and trailing data are
// rejected and every decoded string has surrounding whitespace trimmed.
//
// Example:
//
//	mux.Post("/auth/login", handler.Wrap(login,
//		handler.WithBinder[handler.Context, LoginRequest](binder.JSON()),
//	))
func JSON() Bind {
	return JSONWithLimit(DefaultMaxJSONSize)
}

// JSONWithLimit is JSON with a custom body size limit in bytes.
func JSONWithLimit(limit int64) Bind {
	return func(r *http.Request, v any) error {
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			return fmt.Errorf("%w: expected application/json", ErrMissingContentType)
		}
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("%w: got %s, expected application/json", ErrUnsupportedMediaType, contentType)
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
		if err != nil {
			return errors.Join(ErrInvalidJSON, err)
		}
		if int64(len(body)) > limit {
			return fmt.Errorf("%w: max %d bytes", ErrBodyTooLarge, limit)
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return fmt.Errorf("%w: empty body", ErrInvalidJSON)
		}

		decoder := json.NewDecoder(bytes.NewReader(body))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}

		var extra json.RawMessage
		if err := decoder.Decode(&extra); err != io.EOF {
			return fmt.Errorf("%w: unexpected data after JSON object", ErrInvalidJSON)
		}

		trimStrings(reflect.ValueOf(v))
		return nil
	}
}

func trimStrings(rv reflect.Value) {
	switch rv.Kind() {
	case reflect.String:
		if rv.CanSet() {
			rv.SetString(strings.TrimSpace(rv.String()))
		}
	case reflect.Struct:
		for i := range rv.NumField() {
			trimStrings(rv.Field(i))
		}
	case reflect.Slice, reflect.Array:
		for i := range rv.Len() {
			trimStrings(rv.Index(i))
		}
	case reflect.Ptr, reflect.Interface:
		if !rv.IsNil() {
			trimStrings(rv.Elem())
		}
	}
}
