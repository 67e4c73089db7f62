// Package validation rejects documents that should not enter the pipeline.
//
// Checks run in a fixed order and stop at the first failure: structure,
// content, size, filename, then metadata. Every failure is a
// *core.ValidationError that unwraps to core.ErrValidation and to the
// specific sentinel. Content-quality heuristics never fail validation; they
// are logged as warnings and returned by CheckQuality.
package validation
