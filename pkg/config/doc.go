// Package config provides configuration management for tollgate.
//
// Configuration is loaded from a YAML file, merged with defaults, and
// validated before use. Environment variables of the form
// TOLLGATE_SECTION_FIELD override file values.
//
// # Usage
//
//	cfg, err := config.LoadConfigWithEnvOverrides("tollgate.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	engine, err := meter.New(meter.Options{Config: cfg.MeterConfig()})
//
// Validation collects every problem at once rather than stopping at the
// first, so a misconfigured file can be fixed in one pass:
//
//	configuration validation failed with 2 errors:
//	  - budget.daily_limit: cannot be negative
//	  - storage.backend: unknown backend "postgres", must be "memory" or "sqlite"
package config
