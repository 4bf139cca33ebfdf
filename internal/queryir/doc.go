// Package queryir provides the typed form of the kspace request DSL.
//
// Requests arrive as structured objects (decoded JSON or YAML). Decode turns
// such an object into one of the sealed Request types, routing by shape:
//
//	{batch: true, queries: [...]}   => *Batch
//	{action: "GET", ...}            => *Get
//	{action: "CREATE", ...}         => *Create
//	{action: "UPDATE", ...}         => *Update
//
// Anything else fails with ErrCodeInvalidAction.
//
// SEALED INTERFACES:
//
// Request and CreateDirective are sealed using the marker method pattern.
// Only types in this package implement them, so the engine's type switches
// are exhaustive:
//
//	switch r := req.(type) {
//	case *Get:
//	case *Create:
//	case *Update:
//	case *Batch:
//	}
//
// CREATE STRATEGIES:
//
// The wire form selects a creation strategy with a "processor" string. The
// typed form replaces that with a CreateDirective variant:
//
//	DirectValue{Content}                      content stored as given
//	GeneratedContent{Processor, ConfigPath}   content produced by a generator
//
// New strategies are added as new variants, not as string comparisons in
// the engine.
//
// BATCH MEMBERS:
//
// Batch members are always *Get. A member whose explicit action is not GET
// is rejected during Decode, so a batch either decodes completely or not at
// all and no member ever runs before the whole batch has been validated.
package queryir
