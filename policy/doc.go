// Package policy maps operation types to timeout and retry rules.
//
// A Registry holds one TimeoutPolicy per operation type, with a
// documented default used for unregistered types. Lookups never fail:
// an unknown operation type resolves to the default policy.
//
// Policies can be tuned three ways, in increasing precedence:
//
//   - Register / LoadFile at process start
//   - Override for runtime tuning of individual fields
//   - environment variables of the form PREFIX_TIMEOUT_<OPERATION_TYPE>
//     holding a positive integer millisecond value
//
// An environment override replaces the computed duration but is always
// clamped to the registry's safety ceiling. Zero, negative, or
// unparseable values are ignored.
package policy
