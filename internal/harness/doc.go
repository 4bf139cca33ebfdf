// Package harness runs data-driven cases against the engine.
//
// # Case Format
//
// A case is a directory holding a test.yaml file and the files it names:
//
//	desc: "GET items by type"
//	given:
//	  dsl_file: dsl.json     # default dsl.json
//	  repo_file: repo.json   # default repo.json
//	then:
//	  notes:                 # deep equality on result key "notes"
//	    - { id: 1, type: note }
//	  ruleMatch:
//	    - { type: isArray, target: notes }
//	    - { type: lengthEquals, target: notes, value: 1 }
//	  space:                 # the space after the operation
//	    knowledge_space: { knowledge_items: [...] }
//	  error: NO_MATCHING_ITEMS
//
// The DSL file holds the request, optionally wrapped in {"dslQuery": ...}.
// The repo file holds the space in the knowledge_space.knowledge_items
// layout. Either may be JSON or YAML.
//
// With given.mode set to update_conditions, the DSL file instead holds
// {"originalDSL": ..., "updates": [...]} and the result is
// {"updatedDSL": ...}.
//
// # Then Checks
//
// Keys of then other than ruleMatch, space and error are compared for deep
// equality with the same key of the result. Rule targets are dotted paths
// into the result; numeric segments index arrays. Supported rules:
//
//   - hasKey: the target is an object with key value
//   - isArray, isObject: the target kind
//   - lengthEquals, lengthNotGreaterThan, lengthGreaterThan: the length of an
//     array or string target compared with value
//   - stringEqualsIgnoreCase: the target string equals value under Unicode
//     case folding
//
// # Deterministic Testing
//
// Every case runs with a fixed clock (testutil.SuiteTime) and a fixed
// operation id, so results and golden snapshots are identical across runs.
package harness
