// Package log provides the structured logging abstraction used across feedship.
//
// Components never talk to a logging library directly. They receive a
// [Logger] and attach context with [Field] helpers:
//
//	logger.Error("token refresh failed",
//	    log.String("op", "token.refresh"),
//	    log.Err(err),
//	)
//
// Two implementations ship with the package: [ZerologAdapter], backed by
// github.com/rs/zerolog, and [NoopLogger], which is the default for library
// users that do not pass a logger.
//
// Implement [Logger] to route feedship output into an existing logging stack.
package log
