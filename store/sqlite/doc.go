// Package sqlite provides a SQLite-backed checkpoint store.
//
// Two database/sql drivers are linked in: mattn/go-sqlite3 (driver "sqlite3",
// requires cgo) and modernc.org/sqlite (driver "sqlite", pure Go). Choose one
// with SqliteOptions.Driver.
//
//	s, err := sqlite.NewSqliteCheckpointStore(sqlite.SqliteOptions{
//		Path:   "data/checkpoints.db",
//		Driver: sqlite.DriverPure,
//	})
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
// The table is created on open. Timestamps are stored as RFC 3339 text so both
// drivers read them back identically.
package sqlite
