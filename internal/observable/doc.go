// Package observable provides reactive containers with keyed listeners.
//
// Listeners are invoked synchronously, in registration order, on every
// mutation. Assigning a value equal to the current one still notifies.
package observable
