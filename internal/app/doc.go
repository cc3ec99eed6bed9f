// Package app wires the parking gateway together and manages its lifecycle.
//
// # Initialization Flow
//
//  1. Initialize logging and OpenTelemetry from the loaded configuration
//  2. Create the backend client and the security oracle behind the gate
//  3. Create the shared state store and the services that mutate it
//  4. Create the state stream hub and mount every route on one router
//  5. Configure the HTTP server
//
// # Usage
//
//	cfg, err := config.Load()
//	...
//	application, err := app.NewApplication(ctx, cfg, nil)
//	...
//	err = application.Run(ctx)
//
// # Graceful Shutdown
//
// Run returns once ctx is cancelled. In-flight requests are given
// Server.ShutdownTimeout to finish, stream clients are disconnected, the
// security oracle is closed and telemetry is flushed.
package app
