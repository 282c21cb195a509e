// Package stores provides the persistence layer for the hospital record
// system. It includes a SQLite-backed record store holding patients, staff
// and appointments, with embedded schema migrations, typed reads and a raw
// execute/query contract for ad-hoc statements.
package stores
