// Package logging provides structured logging for SIGPesq Core.
//
// It wraps log/slog so every component logs with the same handler, level
// filtering and default fields (service, version).
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log passwords, password hashes or bearer tokens. The one exception is
// the generated first-boot administrator password, which is logged once at
// warn level so the operator can sign in.
package logging
