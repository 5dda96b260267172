// Package diag defines the diagnostic model shared by all pipeline stages.
//
// # Purpose
//
//   - Provide deterministic data structures that capture findings produced by
//     input loading, duplication, metadata emission and output.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to concrete storage or formatting layers.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Subject – the entity the finding is about (input path, type or member
//     full name, manifest key).
//   - Notes – optional secondary subjects/messages for additional context.
//
// Codes are grouped by stage: 1xxx load, 2xxx duplication, 3xxx emission,
// 40xx output and 41xx project configuration.
//
// # Emitting diagnostics
//
// Stages use a diag.Reporter to decouple emission from storage. The emitter,
// for example, constructs a ReportBuilder via ReportWarning and chains
// WithNote before calling Emit. Parallel emission sessions share one
// LockedReporter.
//
// Fatal emission failures are not reported here; they surface as errors from
// the session and are converted into diagnostics by the driver.
package diag
