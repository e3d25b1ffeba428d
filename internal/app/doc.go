// Package app wires the datacheck HTTP service together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from the config file and DATACHECK_* variables
//	2. Initialize logging and OpenTelemetry
//	3. Resolve and create the working directories
//	4. Build the pipeline registry, manager and services
//	5. Set up middleware and routes
//	6. Create the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication(nil, nil)
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// # Graceful Shutdown
//
// Run returns after SIGINT or SIGTERM once in-flight runs are cancelled, the
// server has drained, and the telemetry providers have flushed. The package
// never calls os.Exit; main decides the exit code.
package app
