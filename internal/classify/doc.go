// Package classify decides which category and destination folder a file
// belongs to.
//
// Three providers satisfy the Provider interface:
//   - Local evaluates user rules (extension, keyword, regex) in priority order,
//     then a built-in extension table, and finally falls back to "Other". It
//     never fails.
//   - Remote asks the classification service over HTTP and validates the
//     answer before the engine acts on it.
//   - Fallback tries Remote first and degrades to Local when the service is
//     unreachable. A quota refusal is not degraded: the operator has to act.
//
// BuildRequest turns a path on disk into the Request both providers consume,
// including a short content preview for text formats.
package classify
