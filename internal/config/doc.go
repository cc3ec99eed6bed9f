// Package config loads gateway configuration.
//
// # Configuration Sources
//
// Values are resolved in the following order of precedence:
//
//  1. Environment variables (highest priority)
//  2. A YAML configuration file
//  3. Default values (lowest priority)
//
// A .env file in the working directory is read first when present. It only
// fills variables that are not already set in the process environment.
//
// # Environment Variables
//
// All environment variables use the PARKING_ prefix followed by the section:
//
//	PARKING_SERVER_PORT=8080
//	PARKING_BACKEND_BASE_URL=https://api.parking.example.com
//	PARKING_SECURITY_ORACLE_PROVIDER=redis
//	PARKING_REDIS_ADDR=localhost:6379
//	PARKING_LOGGING_LEVEL=debug
//
// # Configuration File
//
// The file is taken from PARKING_CONFIG_FILE, or else the first of
// config.yaml and configs/config.yaml that exists. Per-category security
// policies can only be overridden from the file:
//
//	security:
//	  oracle:
//	    provider: local
//	  policies:
//	    login:
//	      attempts: 5
//	      window: 15m
//	      block_duration: 15m
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests should start from config.Default().
package config
