// Package timeouts defines shared timeout constants used across the relay.
// Centralizing these values keeps the lobby, transport and commands in step.
package timeouts

import "time"

// Join caps how long a participant waits in the lobby for an opponent.
const Join = 2 * time.Minute

// Heartbeat is the interval between keepalive frames on a player connection.
// A failed heartbeat write is how silent disconnects are detected.
const Heartbeat = time.Second

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight work during graceful
// shutdown.
const Shutdown = 5 * time.Second
