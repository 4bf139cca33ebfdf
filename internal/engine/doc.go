// Package engine interprets knowledge-space requests.
//
// A request arrives decoded (see package queryir) together with the space it
// acts on. Handle routes it by kind:
//
//   - GET runs the query pipeline: snapshot, filter, stable sort, offset,
//     limit, then alias shaping. The space is only read.
//   - CREATE appends one item, with content taken directly from the request
//     or produced by the content generator.
//   - UPDATE shallow-merges fields onto every matching item and swaps in the
//     new item sequence.
//   - A batch runs GET queries in order and keys the results by alias.
//
// Execution is synchronous and single-threaded per space. Every error is
// fatal to its operation and leaves the space as it was, except for content
// loading during a GET: a failed content_ref load becomes placeholder
// content and the query continues.
package engine
