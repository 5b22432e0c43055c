// Package config loads the resrules configuration.
//
// Settings come from, in increasing order of precedence: DefaultConfig, an
// optional YAML file, environment variables (RESRULES_AGENT_DIR,
// RESRULES_PROBE_TIMEOUT, RESRULES_JOURNAL, LOG_LEVEL) and finally command
// line flags applied by the caller. The result is checked with struct tag
// validation before use.
//
// Example file:
//
//	agent_dir: /usr/share/cluster
//	probe_timeout: 10s
//	journal:
//	  path: /var/lib/resrules/journal.db
//	  retain: 50
//	telemetry:
//	  logging:
//	    level: debug
//	    format: console
//	    output: stderr
package config
