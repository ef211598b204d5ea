// Package catalog persists material identities and batch history in
// SQLite.
//
// The identity table is the durable side of the material-identity
// primitive: a name-to-UUID mapping plus the last observed content
// hash. The batch journal records one row per bake batch with its
// terminal state and counters; it is bookkeeping for operators, not a
// task queue — in-flight batch state lives only in memory and dies with
// the process.
//
// Schema changes bump schemaVersion; the database is disposable and can
// be deleted to adopt a new schema.
package catalog
