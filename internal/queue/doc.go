// Package queue is a durable at-least-once task queue backed by SQLite and a
// pool of workers that drains it.
//
// A task carries one record id. Workers lease tasks for a bounded time; a
// handler error schedules another attempt with exponential backoff until the
// attempt limit, after which the task is dead-lettered and kept for an
// operator. Leases left behind by a killed process expire and are reclaimed,
// so delivery survives restarts. Handlers must therefore be idempotent.
package queue
