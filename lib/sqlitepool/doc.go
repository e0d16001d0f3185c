// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite databases with shipwright's standard
// settings and hands out connections from a fixed-size pool.
//
// It wraps zombiezen.com/go/sqlite. Callers either [Pool.Take] and
// [Pool.Put] connections themselves or use [Pool.Read] and
// [Pool.Write], which borrow a connection for the duration of a
// callback. Write runs the callback inside an IMMEDIATE transaction, so
// concurrent writers queue on the busy timeout instead of failing
// halfway through.
//
// # Pragmas
//
// Every connection is initialized with:
//
//   - journal_mode=WAL: readers never block the single writer.
//   - synchronous=NORMAL: commits survive a process crash.
//   - busy_timeout=5000: wait up to five seconds for the write lock.
//   - foreign_keys=ON
//   - temp_store=MEMORY
//
// # Schema
//
// [Config.Schema] is executed once, on a single connection, before
// Open returns. Statements must be idempotent (CREATE ... IF NOT
// EXISTS) because the same database is opened by every run of the
// tool.
package sqlitepool
