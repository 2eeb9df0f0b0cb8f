//go:build integration

// Package integration runs the remote range sources against a real
// S3-compatible server.
//
// These tests require Docker and start a MinIO container using testcontainers.
// Run with: go test -tags=integration ./integration/...
package integration
