// Package config provides centralized configuration management for pqmeta.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is layered in the following order, later sources winning:
//
//	1. Default values from Default()
//	2. The YAML configuration file passed to Load
//	3. Environment variables (highest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern PQMETA_<SECTION>_<FIELD>:
//
//	PQMETA_SERVER_PORT=8080
//	PQMETA_EXTRACTION_WORKERS=8
//	PQMETA_EXTRACTION_MAX_FOOTER_SIZE=67108864
//	PQMETA_LOGGING_LEVEL=debug
//	PQMETA_TELEMETRY_METRIC_EXPORTER=none
//
// Only variables that are set override earlier layers.
//
// # Validation
//
// Load validates the merged configuration with go-playground/validator
// struct tags. Allowed extensions are lower-cased and dot-prefixed before
// the tags are checked.
//
// # Usage
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests that need no file or environment should use config.Default().
package config
