package server

import "context"

// Server defines the lifecycle contract of the backend server.
type Server interface {
	// RunServer serves until SIGTERM, SIGINT or SIGQUIT.
	RunServer()

	// Run serves until ctx ends and then shuts down gracefully.
	Run(ctx context.Context) error

	// Shutdown gracefully stops the server and frees associated resources.
	Shutdown()
}
