// Package diag defines the diagnostic model shared by the translator and the
// build pipeline.
//
// # Purpose
//
// Translation never aborts on a single bad instruction. Each site that is
// emitted in degraded form (an unresolved reference, an unhandled opcode, a
// branch that cannot become a block) is recorded here as a Diagnostic so the
// caller gets a post-pass report instead of only inline comments.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – short human text.
//   - Primary – the Location (type, method, instruction offset) of the site.
//   - Notes – optional extra context.
//
// # Emitting diagnostics
//
// Producers talk to a Reporter. BagReporter collects into a Bag, which
// supports sorting, deduplication and merging; DedupReporter filters repeats
// before forwarding. FormatShortDiagnostics renders a stable one-line-per-entry
// listing used by the CLI and by tests.
package diag
