// Package sqlite implements store.CheckpointStore over SQLite via
// mattn/go-sqlite3, for single-process deployments and local development
// (CHECKPOINT_BACKEND=sqlite).
//
//	s, err := sqlite.New(sqlite.Options{Path: cfg.SQLitePath})
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
// New opens the database and calls InitSchema automatically. Writes are
// append-only, matching the postgres and redis backends.
package sqlite
