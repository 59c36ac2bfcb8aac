// Package config loads and validates the loom daemon configuration.
//
// Configuration comes from a YAML file, with defaults for everything, and
// can be overridden per-field through LOOM_SECTION_FIELD environment
// variables. A minimal file:
//
//	vault:
//	  path: /home/me/vault
//	rules:
//	  dir: /home/me/vault/.loom/rules
//	  watch: true
//	scheduler:
//	  hour: 9
//	history:
//	  enabled: true
//
// Environment variables always take precedence over the file, so
// LOOM_SCHEDULER_HOUR=7 moves the daily trigger regardless of what the
// file says.
package config
