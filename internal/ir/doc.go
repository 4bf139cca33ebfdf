// Package ir provides the value model shared by every kspace package.
//
// Knowledge items are open records: besides id, type, content and
// created_at they may carry any field, and any field may appear in a
// condition or sort key. ir gives those fields a closed set of kinds so
// that the engine can evaluate predicates without reflection:
//
//	IRNull, IRString, IRInt, IRFloat, IRBool, IRArray, IRObject
//
// This package imports nothing internal. All other internal packages
// import ir.
//
// Key design constraints:
//   - Equality is strict: no coercion between kinds, except that IRInt and
//     IRFloat are both numbers and compare numerically.
//   - Ordering is partial: values without a natural order relative to each
//     other report ok=false from Compare, and callers treat them as ties.
//   - An absent field is not a value; lookups return an ok flag instead.
//   - MarshalCanonical is the only serialization used for golden files and
//     for the SQLite archive, so output is byte-stable across runs.
package ir
