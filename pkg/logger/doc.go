// Package logger builds log/slog loggers for the service.
//
// New applies functional options on top of a JSON, info level, stdout default.
// WithEnvironment switches between the development preset (text, debug) and the
// staging/production preset (JSON, info). NewFromConfig reads the same settings from
// the LOG_LEVEL, LOG_FORMAT, APP_ENV and SERVICE_NAME variables.
//
// Request-scoped values are added by ContextExtractor functions run by
// LogHandlerDecorator on every record:
//
//	log := logger.New(
//	    logger.WithEnvironment("production", "restauth"),
//	    logger.WithContextExtractors(requestmeta.LogExtractors()...),
//	)
//	log.InfoContext(ctx, "mfa verified", logger.UserID(id), logger.Factor("totp"))
//
// The attribute helpers keep key names consistent across packages. Identifiers that
// are empty produce an empty attribute, which slog drops.
package logger
