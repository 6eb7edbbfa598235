// Package httpserver runs an http.Handler with graceful shutdown and exposes
// liveness and readiness handlers.
//
// Run binds the listener up front, so address errors are returned immediately
// and start hooks observe the real address (useful with ":0"). It then blocks
// until the context is cancelled, SIGINT/SIGTERM arrives or Shutdown is called,
// and drains in-flight requests for at most the shutdown timeout.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	err := srv.Run(ctx, router)
//
// ReadinessHandler takes named checks (database ping, Redis ping) and reports
// each one in a JSON body, answering 503 while any of them fails.
//
// Errors are wrapped with ErrStart and ErrShutdown.
package httpserver
