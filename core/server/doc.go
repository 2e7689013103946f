// Package server holds the HTTP server configuration.
//
// The start command owns the Fiber app itself; this package only defines the
// settings it is built from: listen port, API key and shutdown budget.
package server
