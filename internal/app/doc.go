// Package app wires the pqmeta report service together and owns its
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, optional YAML file, PQMETA_* environment)
//	2. Initialize logging and OpenTelemetry
//	3. Create the job store and extraction orchestrator
//	4. Build the report and health services
//	5. Set up middleware and routes
//	6. Configure the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Tests build the application with New from an in-memory configuration and
// drive Router directly with httptest.
//
// # Graceful Shutdown
//
// Run stops on SIGINT or SIGTERM. Stop drains in-flight requests within the
// configured shutdown timeout, ends the report cleanup loop and flushes the
// telemetry providers. The package never calls os.Exit.
package app
