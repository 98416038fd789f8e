// Package trace provides the tracing and logging subsystem of the translator.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	ilwasm build --trace=- --trace-level=detail app.ilpk
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr), text or NDJSON
//   - RingTracer: circular buffer dumped after a failed build
//   - LogTracer: forwards events to a commonlog logger
//   - MultiTracer: combines multiple tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: only failures
//   - LevelPhase: driver and per-program boundaries
//   - LevelDetail: per-type events
//   - LevelDebug: everything including per-method events
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeProgram, "translate", parentID)
//	defer span.End("")
package trace
