// Package logger provides the structured logging setup shared by all
// components of the listings catalog service.
//
// It wraps Uber's Zap logger behind a small level-method API
// (Info/Debug/Warn/Error/Fatal) that takes an optional error plus
// free-form field maps. Output is JSON on stderr with ISO8601
// timestamps, and every entry carries the process id and service name.
//
// The package ships an fx module so the logger participates in the
// application lifecycle; buffered entries are flushed on shutdown.
//
// Configuration is environment driven:
//
//	ZAP_LOGGER_LEVEL=debug       # debug, info, warning, error
//	LOGGER_SERVICE_NAME=listings-api
package logger
