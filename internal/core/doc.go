// Package core provides the domain model and pure logic of the credential pipeline.
//
// This package contains everything that does not touch pixels: the tabular
// parser, the placeholder engine, the validation engine, the photo library,
// and the error taxonomy. It can be used by the CLI, the preview server, or
// tests without modification.
//
// # Architecture
//
// The pipeline is organized around a handful of values:
//
//   - Dataset: header row (lower-cased) plus data rows, built by [ParseTabular].
//   - Layout: the ordered text and image fields plus the filename pattern.
//   - PhotoLibrary: normalized photo key to encoded image bytes.
//   - Snapshot: an immutable view of all of the above plus the template image,
//     the sole input of [Validate].
//
// # Placeholders
//
// Text fields and the filename pattern reference columns with {{column}}
// tokens. [Resolve] substitutes them case-insensitively against a row and
// leaves unknown tokens verbatim; [ExtractPlaceholders] lists the tokens so
// the validation engine can report the unknown ones:
//
//	core.Resolve("{{id}} - {{Nombre}}", []string{"id", "nombre"}, []string{"7", "Ana"})
//	// "7 - Ana"
//
// # Error Handling
//
// Errors fall into three kinds:
//
//   - ConfigurationError: the validation set is non-empty; generation is refused.
//   - ResourceError: a template or photo failed to decode.
//   - IOError: a data, photo, or layout source could not be read.
//
// [MapError] turns any of them into a [UserMessage] with a support code:
//
//   - CFG001-CFG002: Configuration errors (validation failures)
//   - IMG001-IMG003: Image errors (decode, empty, unsupported)
//   - FILE001-FILE004: File errors (read, empty, encoding, size)
//   - LAY001-LAY002: Layout document errors
//   - BAT001-BAT003: Batch errors (cancelled, timeout, busy)
package core
