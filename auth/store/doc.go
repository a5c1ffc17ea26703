// Package store keeps the access/refresh credential pair used by the
// authenticated transport.
//
// A Store caches the pair in memory and persists every change to a Slots
// backend: two keyed string slots named "access" and "refresh". Backends
// ship for process memory, afs-addressable files, Redis, DynamoDB and
// Postgres; any of them can be wrapped with Sealed to encrypt values at rest.
package store
