// Package logx configures clintoncat's structured logging.
//
// It is a small wrapper (logx.Logger) on top of zerolog that keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - An optional events sink (min-level + rate limiting) that forwards
//     records to the in-process event bus
package logx
