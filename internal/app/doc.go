// Package app provides application initialization and lifecycle management
// for the REM report service. It wires configuration, logging, observability,
// the WebSocket hub and the HTTP services together at startup and handles
// graceful shutdown.
//
// # Initialization Flow
//
// The caller loads configuration first; NewApplication then:
//
//	1. Initializes logging and OpenTelemetry
//	2. Resolves and creates the data directories
//	3. Initializes services with their dependencies
//	4. Sets up HTTP handlers and middleware
//	5. Configures the HTTP server
//
// # Usage
//
// The main entry point is typically:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM so that active requests drain, WebSocket
// clients are closed cleanly and final metrics are flushed before exit.
// Initialization errors are returned to the caller; the package never calls
// os.Exit itself.
package app
