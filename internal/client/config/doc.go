// Package config loads runtime configuration for the registry CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file, selected with --config or the CRATES_CLIENT_CONFIG
//     environment variable.
//  3. Command-line flags bound by the cli package, which override earlier
//     values.
//
// # JSON schema
//
// Timeouts use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "token": "eyJhbGciOi...",
//	  "call_timeout": "30s"
//	}
package config
