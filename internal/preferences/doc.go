// Package preferences holds the per-context preference registry.
//
// One Registry is constructed for each execution context (background worker,
// options, popup) and passed to its consumers. InitDefaults binds the
// storage backends, loads persisted values or seeds defaults, and wires a
// persistence listener on every slot so that later mutations are written
// back to the preference backend.
//
// Persisted keys and encodings:
//
//	is_enabled         bool
//	domain_exclusions  array of strings
//	notification_type  integer (see NotificationType)
package preferences
