// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// GRPCRequest caps the time allowed for a single gRPC request from the
// minerctl tool to the miner service.
const GRPCRequest = 2 * time.Second

// StoreOp caps the time allowed for a single storage operation issued by
// background loops, keeping a stalled database from wedging the poller.
const StoreOp = 5 * time.Second
