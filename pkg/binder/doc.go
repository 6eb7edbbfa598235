// Package binder decodes HTTP request bodies into typed request structs.
//
// JSON is the only supported source. The binder is strict: the media type
// must be application/json, unknown fields and trailing data are rejected,
// and bodies larger than the configured limit fail with ErrBodyTooLarge.
// Decoded strings are trimmed so that "  123456 " and "123456" bind the same.
//
//	var req LoginRequest
//	if err := binder.JSON()(r, &req); err != nil {
//		// errors.Is(err, binder.ErrInvalidJSON) etc.
//	}
package binder
