// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger writing console entries to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - key-value helpers (DebugKV, InfoKV, WarnKV, ErrorKV).
//
// Every pipeline stage accepts a context and extracts the logger from it, so
// names and fields attached at the CLI boundary follow the run.
package logger
