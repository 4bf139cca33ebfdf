// Package store provides a SQLite archive for knowledge spaces.
//
// A space is saved whole under a name and loaded back whole; the archive is
// not a live query engine. Each item is stored as canonical JSON in its
// original position, so a load reproduces the space exactly and compiled
// GET queries (see internal/querysql) can be run directly against it.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Items are removed with their space
//
// All reads order by position, so results are identical across runs.
package store
