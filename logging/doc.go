// Package logging provides a minimal logging interface and adapters for the
// coordination subsystems.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the coordinator and its subsystems use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - CoordLogger with contextual scoping and coordination-specific helpers
//
// Usage:
//
//	logger := logging.NewCoordLogger(logging.LogLevelInfo, "json")
//	coord := agentcoord.New(func(o *agentcoord.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
