// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package db opens the relational store and creates the schema. The DDL is
// written to run on both PostgreSQL (production) and SQLite (dev/test), so
// timestamps are set by the application rather than database defaults.
package db
