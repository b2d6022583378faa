// Package cmd implements the command-line interface for partikv, a
// client for a partitioned, replicated key-value store. It provides a
// hierarchical command structure for interacting with a cluster as a
// client.
//
// The package is organized into subpackages:
//
//   - kv: commands for table operations (get, set, del, has, incr, ttl, perf)
//   - util: shared utilities for command-line processing and configuration (internal use)
//
// See partikv-cli -help for a list of all commands.
package cmd
