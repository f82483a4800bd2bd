// Package config provides environment-based configuration.
//
// Loads from the process environment (a .env file is applied by main via
// godotenv in development). The static facility topology lives in a separate
// YAML file; this package only carries its path.
package config
