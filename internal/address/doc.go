// Package address provides the value types and routing-key derivation
// used everywhere else in partikv to name a partition and a replica.
package address
