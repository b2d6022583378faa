// Package meta implements the meta cluster client: failover across a
// small list of meta servers, forward-hint following, and decoding of
// partition configuration responses. See meta.go for the
// implementation.
package meta
