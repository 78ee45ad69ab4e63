// Package config loads the wifiprovd configuration file.
//
// The file is YAML. Keys that are absent keep their Default value, so a
// minimal file only names what differs from a stock Raspberry Pi:
//
//	transport: bluetooth
//	wireless:
//	  country: DE
//	session:
//	  read_timeout: 5m
//
// Command-line flags are applied by the caller after Load.
package config
