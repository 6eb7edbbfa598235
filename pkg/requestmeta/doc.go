// Package requestmeta attaches a request id, the client IP and the user agent to
// every request context. Logging, audit and rate limiting read them from there.
//
// Proxy headers (CF-Connecting-IP, DO-Connecting-IP, X-Forwarded-For, X-Real-IP)
// are honoured only with Config.TrustProxyHeaders, otherwise a client could pick
// the address its rate limit is keyed on.
package requestmeta
