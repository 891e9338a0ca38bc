// Package config loads marketplace settings from CUE files.
//
// A config file is unified with the embedded #Config schema, so unknown
// fields, out-of-range values and malformed addresses are rejected with the
// position of the offending value. Missing fields take schema defaults.
//
// Example:
//
//	deployer: "0x00000000000000000000000000000000000000a1"
//	database: "/var/lib/marketplace/journal.db"
//	log: level: "debug"
package config
