// Package config handles configuration loading for proposal-gateway.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file (chosen by the .toml
// extension) with environment variable expansion. When no file exists the
// gateway runs from environment variables alone.
//
// # Configuration File
//
// Location (in order):
//
//  1. Path from PROPOSAL_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/proposal/gateway.yaml
//  3. ~/.config/proposal/gateway.yaml
//
// # Environment Fallback
//
// Without a file, FromEnv reads:
//
//	MODEL_ENDPOINT  remote model URL (unset means unconfigured)
//	COOKIE          sent as the Cookie header on model calls
//	PORT            HTTP port, bound on 0.0.0.0 (default 5000)
//
// # Environment Variable Expansion
//
// File values can reference environment variables:
//
//	model:
//	  cookie: "${COOKIE}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:5000"
//
//	model:
//	  endpoint: "https://cortex.example.com/api/chat"
//	  cookie: "${COOKIE}"
//	  timeout: "120s"          # Go duration syntax
//	  workflow_timeout: 1800   # seconds, sent to the model service
//
//	database:
//	  driver: "memory"         # or "sqlite"
//	  path: "/var/lib/proposal/sessions.db"
//
//	auth:
//	  jwt_secret: "${PROPOSAL_JWT_SECRET}"  # optional, >= 32 bytes
//
//	logging:
//	  level: "info"            # debug, info, warn, error
//	  format: "text"           # text or json
//
// An empty model.endpoint is valid. The gateway starts and reports itself as
// not configured.
package config
