// Package config loads and validates boxgate configuration.
//
// YAML files, environment variables and CLI flags are merged by viper and
// checked with go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s), merged left-to-right
//  3. Environment variables (BOXGATE_ prefix)
//  4. CLI flags that were explicitly set
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx = config.WithContext(ctx, cfg)
//
// # Environment Variables
//
// Every key maps to an environment variable with the BOXGATE_ prefix:
//   - server.addr → BOXGATE_SERVER_ADDR
//   - auth.token → BOXGATE_AUTH_TOKEN
//   - ratelimit.global_window → BOXGATE_RATELIMIT_GLOBAL_WINDOW
//
// # Sections
//
//   - env: dev (colored text logs) or prod (JSON logs)
//   - server: listen address, proxy trust, upload cap, backend timeout
//   - auth: the shared token, inline or from token_file / token_env
//   - ratelimit: window limits and widths, sweep interval, counter store
//   - storage: filesystem, s3 or memory object store
//   - database: sqlite or postgres holding redirects and counters
//   - list: backend page sizes
//   - cors, metrics, log
package config
