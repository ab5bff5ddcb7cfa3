// Package timeouts defines shared timeout constants used across the
// battleground processes.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second

// StoreOpen caps the time spent opening a store and applying migrations.
const StoreOpen = 10 * time.Second

// Publish caps a single event publish to the broker.
const Publish = 2 * time.Second
