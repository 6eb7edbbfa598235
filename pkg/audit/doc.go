// Package audit records security relevant actions as structured events.
//
// A Logger fills each Event with a ULID, the action, the outcome and whatever the
// configured context extractors find (user id, request id, client IP, user agent),
// then hands it to a Storage:
//
//	sink := audit.NewAsyncStorage(audit.NewSlogStorage(log), audit.AsyncOptions{})
//	defer sink.Close(ctx)
//
//	a := audit.NewLogger(sink,
//	    audit.WithRequestIDExtractor(requestmeta.RequestID),
//	    audit.WithIPExtractor(requestmeta.ClientIP),
//	)
//	_ = a.Log(ctx, "mfa.activated", audit.WithUserID(id), audit.WithMetadata("recovery_codes_count", 10))
//
// Storages:
//
//   - SlogStorage writes one log record per event.
//   - MemoryStorage keeps events for inspection in tests.
//   - AsyncStorage batches writes to another storage on a background goroutine and
//     writes synchronously when its buffer is full.
//   - MultiStorage fans out to several sinks.
package audit
