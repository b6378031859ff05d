// Package grid models gridded climate variables as labeled arrays.
//
// A [Field] is a dense row-major array (backed by a sparse.DenseArray) whose
// dimensions carry names such as "time", "lat" and "lon". Binary operations
// align operands by dimension name rather than by position, so a field on
// (lat, lon) combines with one on (time, lat, lon) and a scalar combines with
// anything. Shared dimensions must agree in length and, where both sides
// carry them, in coordinates; otherwise the operation fails with
// [ErrShapeMismatch].
//
// Arithmetic never fails on values: division by zero and logarithms of
// non-positive numbers produce IEEE-754 infinities and NaN, which propagate.
//
// # Ownership
//
// Fields are handed from producer to consumer. A consumer calls
// [Field.Release] when it is done; a released field drops its storage, runs
// its release hooks, and rejects further use with [ErrReleased]. Callers that
// need a field twice pass a [Field.Clone].
package grid
