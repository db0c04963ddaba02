// Package server runs the HTTP server of the reference backend, including
// signal handling and graceful shutdown.
package server
