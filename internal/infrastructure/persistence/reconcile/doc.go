// Package reconcile implements the entity-reconciliation and
// association-history engine for batch imports.
//
// Given user-constructed, partially-filled entity objects (possibly nested: a
// position carrying a person, a report carrying attendees), it decides per
// object whether it already exists (update) or is new (insert), walks the
// shallow relation graph in the right order, and maintains the temporally
// versioned peoplePositions ledger so that no historical assignment is ever
// overwritten, only closed out and superseded.
//
// The pieces, leaves first:
//
//   - RuleSet / Resolver: insert-vs-update classification via per-table
//     column-equality match rules, assigning identifiers as a side effect.
//   - Persister: flat insert/update of a single entity using explicit
//     per-table column manifests.
//   - Ledger: the append/soft-close primitive over peoplePositions.
//   - Reconciler: drives the three of them through the relation matrix.
//   - Driver: per-item savepoints inside the caller's transaction, bucketing
//     items into imported/failed.
//
// Everything takes the transaction handle explicitly; the package holds no
// session state of its own.
package reconcile
