// Package storage provides the key/value backends preferences persist to.
//
// Drivers:
//   - "memory": process-local map, values round-tripped through JSON
//   - "file":   one JSON object per file, atomic rename on write, fsnotify watch
//   - "sqlite": single kv table, values stored as JSON text
//
// Every driver returns JSON-shaped values from Get (bool, float64, string,
// []any, map[string]any), so callers parse the same shapes regardless of
// where the data came from.
package storage
