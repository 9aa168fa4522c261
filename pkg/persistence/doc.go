// Package persistence implements the relational store the room runtime
// consumes: world save lookup, character lookup/creation, and a single
// transactional SaveAll that commits a world's opaque data blob and every
// present player's position atomically.
//
// Two drivers are supported, selected by Config.DatabaseDriver:
//
//   - sqlite3 (github.com/mattn/go-sqlite3) for single-node and
//     development deployments, with the file opened in WAL mode.
//   - postgres (github.com/lib/pq) for production deployments sharing a
//     connection pool across rooms.
//
// Schema initialization is a single idempotent CREATE TABLE IF NOT EXISTS
// pass run once at Store construction; there is no separate migration
// runner.
package persistence
