// Package handler provides type-safe JSON HTTP handlers.
//
// A handler is a generic function from a bound request struct to a Response.
// Wrap turns it into an http.HandlerFunc that decodes the body through the
// configured binders, validates it, calls the handler and renders the result:
//
//	type VerifyRequest struct {
//		EphemeralToken string `json:"ephemeral_token" validate:"required"`
//		Code           string `json:"code" validate:"required"`
//	}
//
//	verify := func(ctx handler.Context, req VerifyRequest) handler.Response {
//		res, err := svc.Verify(ctx, mfa.VerifyRequest{EphemeralToken: req.EphemeralToken, Code: req.Code})
//		if err != nil {
//			return handler.Error(err)
//		}
//		return handler.JSON(res)
//	}
//
//	r.Post("/auth/mfa/verify", handler.Wrap(verify,
//		handler.WithBinder[handler.Context, VerifyRequest](binder.JSON()),
//		handler.WithValidator[handler.Context, VerifyRequest](handler.NewValidator()),
//		handler.WithErrorHandler[handler.Context, VerifyRequest](handler.NewErrorHandler(log, classify)),
//	))
//
// # Errors
//
// Every error ends in the error handler, which renders
//
//	{"error": {"code": "...", "message": "...", "details": {"field": ["..."]}}}
//
// ValidationError maps to 400 with per-field details, HTTPError keeps its
// status, binder failures map to 400, 413 or 415, and anything unknown is a
// 500. Applications add their own mappings with a Classifier.
package handler
