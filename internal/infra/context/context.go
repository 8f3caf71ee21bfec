// Package context holds request-scoped values shared by transports and loggers.
package context

type contextKey string
