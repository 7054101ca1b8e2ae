// Package models contains the GORM mapping of the organizational reporting
// schema. The schema is consumed as-is from the reporting application, which
// is why table and column names are camelCase and carried on explicit tags.
//
// The nested relation fields (Position.Person, Report.People, ...) are
// excluded from GORM's own association handling (`gorm:"-"`): the reconcile
// package owns every decision about how and when related rows are written.
//
// Structure:
// - base.go: BaseModel (id, createdAt, updatedAt) and the Entity interface
// - org.go: the five importable entities
// - association.go: the history-sensitive join tables
// - import_run.go: batch run bookkeeping
package models
