// Package repository defines the data access interface for the subway
// service.
//
// One Repository interface has interchangeable backends:
//
//   - memory: maps behind a mutex, used by tests and the "memory" driver
//   - sqlite: modernc.org/sqlite, the default persistent backend
//   - postgres: PostgreSQL through the pgx stdlib driver
//
// The SQL backends share their queries through the sqlstore subpackage.
//
// # Section Storage
//
// Sections are stored as rows keyed by line id. A line's section set is
// always written wholesale by SaveSections inside one transaction, guarded
// by the line's version column (optimistic concurrency). Readers rebuild
// the topology from the rows and reject corrupt sets with an invariant
// error.
package repository
