// Package bake orchestrates one texture-bake batch across a pool of
// persistent external worker processes.
//
// The orchestrator owns the batch end to end: it generates tasks,
// persists a scene snapshot, launches workers, drives a tick-based
// state machine (await-ready, dispatch, await-completion), aggregates
// line-delimited results, and assembles export-ready materials only
// when every task succeeded. Batches are strictly all-or-nothing: one
// task failure, worker death, or protocol fault fails the whole batch,
// and cleanup always restores pre-batch scene state.
//
// Concurrency model: a single tick-driven control loop is the sole
// writer of batch state. Per worker, two reader goroutines move raw
// stdout/stderr lines into thread-safe queues and contain no business
// logic. The control loop never blocks except when writing a task to a
// worker's input stream, where a broken pipe is an immediate fatal
// batch error.
package bake
