// Package sanitize reduces untrusted text and structured data to a bounded,
// attack-pattern-stripped form before it reaches persistence, rendering, or
// logging surfaces.
//
// Two bounds families apply on every call, not just at the top level:
//
//   - Text is stripped of script blocks, dangerous URI schemes, inline event
//     handlers, and dynamic-code call openings, then trimmed and truncated to
//     MaxTextLength runes.
//   - Structured values are walked with an explicit depth counter: levels
//     beyond the maximum are replaced with nil, slices are capped at
//     MaxSliceLen elements, and maps at MaxMapKeys keys. Output size is
//     therefore bounded by maxDepth x MaxSliceLen x MaxMapKeys regardless of
//     input shape.
//
// All functions are total: they never panic, for any input.
package sanitize
