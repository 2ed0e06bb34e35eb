// Package repository defines the persistence interfaces for pai.
//
// The only persisted entity is the audit entry: one row per provider
// operation, written once and never updated. The sqlite subpackage
// implements AuditRepository with the pure-Go modernc driver, so the
// binary stays cgo-free.
//
// # Schema Migration
//
// The sqlite repository migrates its schema on open, adding columns and
// indexes as needed while keeping existing rows.
//
// # Testing
//
// Tests run against in-memory databases.
package repository
