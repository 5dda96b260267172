// Package trace provides a tracing subsystem for ilmerge builds.
//
// The trace package tracks pipeline stages, per-input emission sessions and
// node-level counters to help diagnose slow or stuck builds.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	ilmerge build --trace=- --trace-level=phase
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - Nop: Zero-overhead no-op tracer when disabled
//   - StreamTracer: Immediate write to output (file/stderr)
//   - RingTracer: Circular buffer for crash dumps
//   - MultiTracer: Combines multiple tracers
//
// # Levels
//
// Tracing verbosity is controlled by levels:
//
//   - LevelOff: No tracing
//   - LevelError: Only crash dumps
//   - LevelPhase: Driver and stage boundaries
//   - LevelDetail: Per-module sessions
//   - LevelDebug: Everything including duplication and table counters
//
// # Scopes
//
// Events are categorized by scope:
//
//   - ScopeDriver: Top-level CLI operations
//   - ScopePass: Pipeline stages (load, duplicate, visit, populate, assemble, write)
//   - ScopeModule: Per-module emission sessions
//   - ScopeNode: Duplicated node and table row counters
//
// # Context Propagation
//
// Tracers are propagated through the pipeline via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "visit", parentID)
//	defer span.End("")
package trace
